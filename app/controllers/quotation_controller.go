package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/document"
	"github.com/assettracer/assettracer/internal/pkg/reporting"
	"github.com/assettracer/assettracer/internal/pkg/response"
)

func HandleListQuotations(c *fiber.Ctx) error {
	opts := listOptions(c)
	quotations, total, err := repos().Quotation.List(orgID(c), opts)
	if err != nil {
		return apiError(c, err)
	}
	return page(c, quotations, total, opts)
}

func HandleGetQuotation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	q, err := repos().Quotation.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"quotation":   q,
		"expired":     q.IsExpired(now()),
		"convertible": q.CanConvert(now()),
	})
}

// HandleCreateQuotation numbers and stores a quotation within the monthly
// quotation quota.
func HandleCreateQuotation(c *fiber.Ctx) error {
	var req documentRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	r := repos()
	org, err := r.Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}

	q := &models.Quotation{OrganizationID: org.ID, Status: models.QuotationStatusDraft}
	req.applyQuotation(q, org)
	if err := r.Quotation.Create(c.UserContext(), q); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(org.ID)
	return c.Status(fiber.StatusCreated).JSON(q)
}

// HandleUpdateQuotation replaces the content of a quotation that has not
// been converted yet. The status field moves it through sent, accepted or
// rejected.
func HandleUpdateQuotation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	var req documentRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	r := repos()
	org, err := r.Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	q, err := r.Quotation.GetByID(org.ID, id)
	if err != nil {
		return apiError(c, err)
	}
	if q.InvoiceID != nil {
		return response.Error(c, fiber.StatusConflict, "quotation_locked", "quotation was already converted")
	}
	if req.ClientID != q.ClientID {
		if _, err := r.Client.GetByID(org.ID, req.ClientID); err != nil {
			return apiError(c, err)
		}
	}

	req.applyQuotation(q, org)
	q.Client = nil
	if err := r.Quotation.Update(q); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(org.ID)
	return c.JSON(q)
}

func HandleDeleteQuotation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	if err := repos().Quotation.Delete(orgID(c), id); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(orgID(c))
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleConvertQuotation turns a sent or accepted quotation into a draft
// invoice. The invoice counts against the monthly invoice quota.
func HandleConvertQuotation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	dueDays := c.QueryInt("due_days", defaultInvoiceDueDays)
	if dueDays < 0 || dueDays > 365 {
		return response.Error(c, fiber.StatusBadRequest, "invalid_argument", "due_days must be between 0 and 365")
	}
	inv, err := repos().Quotation.Convert(c.UserContext(), orgID(c), id, now(), dueDays)
	if err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(orgID(c))
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func HandleQuotationPDF(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	return sendPDF(c, document.KindQuotation, id, "")
}
