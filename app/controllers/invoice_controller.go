package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/document"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/jobqueue"
	"github.com/assettracer/assettracer/internal/pkg/mail"
	"github.com/assettracer/assettracer/internal/pkg/middleware"
	"github.com/assettracer/assettracer/internal/pkg/reporting"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/shortener"
)

const publicTokenLength = 24

func HandleListInvoices(c *fiber.Ctx) error {
	opts := listOptions(c)
	invoices, total, err := repos().Invoice.List(orgID(c), opts)
	if err != nil {
		return apiError(c, err)
	}
	return page(c, invoices, total, opts)
}

func HandleGetInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	r := repos()
	inv, err := r.Invoice.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	payments, err := r.Payment.ListByInvoice(inv.OrganizationID, inv.ID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"invoice":  inv,
		"balance":  inv.Balance(),
		"overdue":  inv.IsOverdue(now()),
		"payments": payments,
	})
}

// HandleCreateInvoice numbers and stores a draft invoice within the monthly
// invoice quota.
func HandleCreateInvoice(c *fiber.Ctx) error {
	var req documentRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	r := repos()
	org, err := r.Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}

	inv := &models.Invoice{OrganizationID: org.ID, Status: models.InvoiceStatusDraft}
	req.applyInvoice(inv, org)
	if err := r.Invoice.Create(c.UserContext(), inv); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(org.ID)
	return c.Status(fiber.StatusCreated).JSON(inv)
}

// HandleUpdateInvoice replaces the content of a draft invoice.
func HandleUpdateInvoice(c *fiber.Ctx) error {
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
	inv, err := r.Invoice.GetByID(org.ID, id)
	if err != nil {
		return apiError(c, err)
	}
	if !inv.IsEditable() {
		return response.Error(c, fiber.StatusConflict, "invoice_locked", "only draft invoices can be edited")
	}
	if req.ClientID != inv.ClientID {
		if _, err := r.Client.GetByID(org.ID, req.ClientID); err != nil {
			return apiError(c, err)
		}
	}

	req.applyInvoice(inv, org)
	inv.Client = nil
	if err := r.Invoice.Update(inv); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(org.ID)
	return c.JSON(inv)
}

// HandleDeleteInvoice soft deletes an invoice. The monthly quota slot stays
// used.
func HandleDeleteInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	if err := repos().Invoice.Delete(orgID(c), id); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(orgID(c))
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSendInvoice issues the public link, marks the invoice sent and
// queues the client email. Tiers with PDF export also get the PDF rendered
// to object storage.
func HandleSendInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	r := repos()
	org, err := r.Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	inv, err := r.Invoice.GetByID(org.ID, id)
	if err != nil {
		return apiError(c, err)
	}
	if inv.Status == models.InvoiceStatusPaid || inv.Status == models.InvoiceStatusCancelled {
		return response.Error(c, fiber.StatusConflict, "invalid_state", "invoice is "+inv.Status)
	}
	if inv.Client == nil || inv.Client.Email == "" {
		return response.Error(c, fiber.StatusUnprocessableEntity, "missing_email", "client has no email address")
	}

	if inv.PublicToken == "" {
		token, err := shortener.GenerateSecureSlug(publicTokenLength)
		if err != nil {
			return apiError(c, err)
		}
		inv.PublicToken = token
	}
	sentAt := now()
	inv.SentAt = &sentAt
	if inv.Status == models.InvoiceStatusDraft {
		inv.Status = models.InvoiceStatusSent
	}
	if err := r.Invoice.Update(inv); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(org.ID)

	msg, err := mail.InvoiceMessage(mail.TemplateInvoiceSent, org, inv, jobqueue.InvoicePayURL(inv))
	if err != nil {
		return apiError(c, err)
	}
	if _, err := jobqueue.EnqueueEmail(org.ID, mail.TemplateInvoiceSent, msg); err != nil {
		log.Errorf("[Invoices] Failed to queue email for invoice %s: %v", inv.Number, err)
	}
	if entitlements.LimitsFor(middleware.Tier(c)).HasPDFExport {
		if _, err := jobqueue.EnqueueRenderDocument(org.ID, string(document.KindInvoice), inv.ID); err != nil {
			log.Errorf("[Invoices] Failed to queue render for invoice %s: %v", inv.Number, err)
		}
	}

	return c.JSON(fiber.Map{"invoice": inv, "public_url": jobqueue.InvoicePayURL(inv)})
}

// HandleRemindInvoice queues a payment reminder for an unpaid sent invoice.
func HandleRemindInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	inv, err := repos().Invoice.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	if inv.Status != models.InvoiceStatusSent && inv.Status != models.InvoiceStatusOverdue {
		return response.Error(c, fiber.StatusConflict, "invalid_state", "only sent invoices can be reminded")
	}
	if inv.Balance() == 0 {
		return response.Error(c, fiber.StatusConflict, "invalid_state", "invoice has no open balance")
	}
	job, err := jobqueue.EnqueueInvoiceReminder(inv)
	if err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
}

// HandleInvoicePDF downloads the invoice PDF.
func HandleInvoicePDF(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	inv, err := repos().Invoice.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return sendPDF(c, document.KindInvoice, inv.ID, inv.DocumentKey)
}

// HandlePublicInvoice shows an invoice to its recipient through the public
// token issued on send. No login is required.
func HandlePublicInvoice(c *fiber.Ctx) error {
	token := c.Params("token")
	if !shortener.IsSlug(token, publicTokenLength) {
		return response.Error(c, fiber.StatusNotFound, "not_found", "resource not found")
	}
	r := repos()
	inv, err := r.Invoice.GetByPublicToken(token)
	if err != nil {
		return apiError(c, err)
	}
	org, err := r.Organization.GetByID(inv.OrganizationID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"issuer":      org.DisplayName(),
		"brand_color": org.DisplayColor(),
		"number":      inv.Number,
		"status":      inv.Status,
		"currency":    inv.Currency,
		"issue_date":  inv.IssueDate,
		"due_date":    inv.DueDate,
		"items":       inv.Items,
		"subtotal":    inv.Subtotal,
		"tax_amount":  inv.TaxAmount,
		"total":       inv.Total,
		"amount_paid": inv.AmountPaid,
		"balance":     inv.Balance(),
	})
}
