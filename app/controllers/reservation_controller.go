package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/document"
	"github.com/assettracer/assettracer/internal/pkg/reporting"
)

type reservationRequest struct {
	AssetID  uint      `json:"asset_id" validate:"required"`
	ClientID uint      `json:"client_id" validate:"required"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required"`
	Amount   int64     `json:"amount" validate:"gte=0"`
	Notes    string    `json:"notes"`
}

type reservationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

func HandleListReservations(c *fiber.Ctx) error {
	opts := listOptions(c)
	list, total, err := repos().Reservation.List(orgID(c), opts)
	if err != nil {
		return apiError(c, err)
	}
	return page(c, list, total, opts)
}

func HandleGetReservation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	res, err := repos().Reservation.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(res)
}

// HandleCreateReservation books an asset for a client. Overlapping active
// reservations of the same asset are rejected with 409. A zero amount is
// priced from the asset daily rate.
func HandleCreateReservation(c *fiber.Ctx) error {
	var req reservationRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	res := &models.Reservation{
		OrganizationID: orgID(c),
		AssetID:        req.AssetID,
		ClientID:       req.ClientID,
		StartsAt:       req.StartsAt.UTC(),
		EndsAt:         req.EndsAt.UTC(),
		Amount:         req.Amount,
		Notes:          req.Notes,
	}
	if !res.EndsAt.After(res.StartsAt) {
		return apiError(c, models.ErrInvalidReservationRange)
	}
	if err := repos().Reservation.Create(res); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(res.OrganizationID)
	return c.Status(fiber.StatusCreated).JSON(res)
}

// HandleUpdateReservationStatus confirms, completes or cancels a reservation.
func HandleUpdateReservationStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	var req reservationStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	r := repos()
	if err := r.Reservation.UpdateStatus(orgID(c), id, req.Status); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(orgID(c))
	res, err := r.Reservation.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(res)
}

func HandleReservationPDF(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	return sendPDF(c, document.KindReservation, id, "")
}
