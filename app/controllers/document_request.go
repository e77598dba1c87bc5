package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/document"
	"github.com/assettracer/assettracer/internal/pkg/objectstore"
)

const (
	defaultInvoiceDueDays    = 30
	defaultQuotationValidFor = 30
	documentURLTTL           = 10 * time.Minute
)

type lineItemRequest struct {
	AssetID     *uint  `json:"asset_id"`
	Description string `json:"description" validate:"required,max=255"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	UnitPrice   int64  `json:"unit_price" validate:"gte=0"`
}

func (l lineItemRequest) lineItem() models.LineItem {
	return models.LineItem{Description: strings.TrimSpace(l.Description), Quantity: l.Quantity, UnitPrice: l.UnitPrice}
}

// documentRequest is the editable part of invoices and quotations. Dates are
// RFC 3339; missing dates default relative to today.
type documentRequest struct {
	ClientID   uint              `json:"client_id" validate:"required"`
	Status     string            `json:"status" validate:"omitempty,oneof=draft sent accepted rejected"`
	Currency   string            `json:"currency" validate:"omitempty,len=3"`
	IssueDate  *time.Time        `json:"issue_date"`
	DueDate    *time.Time        `json:"due_date"`
	ValidUntil *time.Time        `json:"valid_until"`
	TaxRate    int64             `json:"tax_rate" validate:"gte=0,lte=10000"`
	Notes      string            `json:"notes"`
	Items      []lineItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r documentRequest) currency(org *models.Organization) string {
	if r.Currency != "" {
		return strings.ToUpper(r.Currency)
	}
	return org.Currency
}

func (r documentRequest) issueDate() time.Time {
	if r.IssueDate != nil {
		return r.IssueDate.UTC()
	}
	return now()
}

func (r documentRequest) applyInvoice(inv *models.Invoice, org *models.Organization) {
	inv.ClientID = r.ClientID
	inv.Currency = r.currency(org)
	inv.IssueDate = r.issueDate()
	inv.DueDate = inv.IssueDate.AddDate(0, 0, defaultInvoiceDueDays)
	if r.DueDate != nil {
		inv.DueDate = r.DueDate.UTC()
	}
	inv.TaxRate = r.TaxRate
	inv.Notes = r.Notes
	inv.Items = inv.Items[:0]
	for _, it := range r.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{AssetID: it.AssetID, LineItem: it.lineItem()})
	}
}

func (r documentRequest) applyQuotation(q *models.Quotation, org *models.Organization) {
	q.ClientID = r.ClientID
	if r.Status != "" {
		q.Status = r.Status
	}
	q.Currency = r.currency(org)
	q.IssueDate = r.issueDate()
	q.ValidUntil = q.IssueDate.AddDate(0, 0, defaultQuotationValidFor)
	if r.ValidUntil != nil {
		q.ValidUntil = r.ValidUntil.UTC()
	}
	q.TaxRate = r.TaxRate
	q.Notes = r.Notes
	q.Items = q.Items[:0]
	for _, it := range r.Items {
		q.Items = append(q.Items, models.QuotationItem{AssetID: it.AssetID, LineItem: it.lineItem()})
	}
}

// sendPDF answers with the rendered document. A stored invoice render is
// served through a presigned URL when object storage is enabled.
func sendPDF(c *fiber.Ctx, kind document.Kind, id uint, storedKey string) error {
	r := repos()
	org, err := r.Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}

	if store := objectstore.Default(); storedKey != "" && store.Enabled() {
		url, err := store.PresignGet(c.UserContext(), storedKey, documentURLTTL)
		if err == nil {
			return c.Redirect(url, fiber.StatusFound)
		}
		log.Warnf("[Documents] Presign %s failed, rendering inline: %v", storedKey, err)
	}

	doc, err := document.Load(r, org, string(kind), id)
	if err != nil {
		return apiError(c, err)
	}
	pdf, err := document.RenderPDF(doc)
	if err != nil {
		return apiError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename("pdf")))
	return c.Send(pdf)
}
