package controllers

import (
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettracer/assettracer/app/models"
)

func registerReservationRoutes(app *fiber.App) {
	app.Post("/reservations", HandleCreateReservation)
	app.Put("/reservations/:id/status", HandleUpdateReservationStatus)
}

func reservationBody(assetID, clientID uint, start time.Time, days int) fiber.Map {
	return fiber.Map{
		"asset_id":  assetID,
		"client_id": clientID,
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   start.AddDate(0, 0, days).Format(time.RFC3339),
	}
}

func TestReservationsRejectOverlap(t *testing.T) {
	env := newTestEnv(t, "free")
	registerReservationRoutes(env.app)
	asset := env.seedAsset(t, "Sony A7")
	client := env.seedClient(t, "")
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	resp, first := env.do(t, fiber.MethodPost, "/reservations", reservationBody(asset.ID, client.ID, start, 2))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 5000, first["amount"])
	assert.Equal(t, models.ReservationStatusPending, first["status"])

	resp, body := env.do(t, fiber.MethodPost, "/reservations", reservationBody(asset.ID, client.ID, start.AddDate(0, 0, 1), 2))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "reservation_conflict", body["error"])

	// back to back bookings do not overlap
	resp, _ = env.do(t, fiber.MethodPost, "/reservations", reservationBody(asset.ID, client.ID, start.AddDate(0, 0, 2), 1))
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body = env.do(t, fiber.MethodPut, fmt.Sprintf("/reservations/%v/status", first["id"]), fiber.Map{"status": models.ReservationStatusCancelled})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.ReservationStatusCancelled, body["status"])

	resp, _ = env.do(t, fiber.MethodPost, "/reservations", reservationBody(asset.ID, client.ID, start.AddDate(0, 0, 1), 1))
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestReservationRangeMustBePositive(t *testing.T) {
	env := newTestEnv(t, "free")
	registerReservationRoutes(env.app)
	asset := env.seedAsset(t, "Sony A7")
	client := env.seedClient(t, "")
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	resp, body := env.do(t, fiber.MethodPost, "/reservations", reservationBody(asset.ID, client.ID, start, 0))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_argument", body["error"])

	resp, body = env.do(t, fiber.MethodPut, "/reservations/1/status", fiber.Map{"status": "archived"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", body["error"])
}
