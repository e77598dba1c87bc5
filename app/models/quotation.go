package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	QuotationStatusDraft    = "draft"
	QuotationStatusSent     = "sent"
	QuotationStatusAccepted = "accepted"
	QuotationStatusRejected = "rejected"
	QuotationStatusExpired  = "expired"
)

// Quotation is a priced offer that can be converted into an invoice.
type Quotation struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID uint            `gorm:"not null;index;index:ux_quotations_org_number,unique,priority:1" json:"organization_id"`
	ClientID       uint            `gorm:"not null;index" json:"client_id" validate:"required"`
	Client         *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Number         string          `gorm:"type:varchar(32);not null;index:ux_quotations_org_number,unique,priority:2" json:"number"`
	Status         string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Currency       string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	IssueDate      time.Time       `gorm:"type:date" json:"issue_date"`
	ValidUntil     time.Time       `gorm:"type:date" json:"valid_until"`
	TaxRate        int64           `gorm:"not null;default:0" json:"tax_rate" validate:"gte=0,lte=10000"`
	Subtotal       int64           `gorm:"not null;default:0" json:"subtotal"`
	TaxAmount      int64           `gorm:"not null;default:0" json:"tax_amount"`
	Total          int64           `gorm:"not null;default:0" json:"total"`
	Notes          string          `gorm:"type:text" json:"notes"`
	InvoiceID      *uint           `gorm:"index" json:"invoice_id,omitempty"`
	Items          []QuotationItem `gorm:"foreignKey:QuotationID" json:"items"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// QuotationItem is one offered line.
type QuotationItem struct {
	ID          uint  `gorm:"primaryKey" json:"id"`
	QuotationID uint  `gorm:"not null;index" json:"quotation_id"`
	AssetID     *uint `gorm:"index" json:"asset_id,omitempty"`
	LineItem    `gorm:"embedded"`
}

// Recalculate recomputes item and document totals.
func (q *Quotation) Recalculate() error {
	items := make([]*LineItem, 0, len(q.Items))
	for i := range q.Items {
		items = append(items, &q.Items[i].LineItem)
	}
	t, err := ComputeTotals(items, q.TaxRate)
	if err != nil {
		return err
	}
	q.Subtotal, q.TaxAmount, q.Total = t.Subtotal, t.Tax, t.Total
	return nil
}

// CanConvert reports whether the quotation may become an invoice.
func (q *Quotation) CanConvert(now time.Time) bool {
	if q.InvoiceID != nil {
		return false
	}
	if q.Status != QuotationStatusSent && q.Status != QuotationStatusAccepted {
		return false
	}
	return !q.IsExpired(now)
}

// IsExpired reports whether valid_until has passed at now.
func (q *Quotation) IsExpired(now time.Time) bool {
	if q.ValidUntil.IsZero() {
		return false
	}
	end := time.Date(q.ValidUntil.Year(), q.ValidUntil.Month(), q.ValidUntil.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return !now.UTC().Before(end)
}

// ToInvoice builds a draft invoice from the quotation. The caller assigns the
// number and persists it.
func (q *Quotation) ToInvoice(issue time.Time, dueDays int) *Invoice {
	qid := q.ID
	inv := &Invoice{
		OrganizationID: q.OrganizationID,
		ClientID:       q.ClientID,
		QuotationID:    &qid,
		Status:         InvoiceStatusDraft,
		Currency:       q.Currency,
		IssueDate:      issue,
		DueDate:        issue.AddDate(0, 0, dueDays),
		TaxRate:        q.TaxRate,
		Notes:          q.Notes,
	}
	for _, it := range q.Items {
		inv.Items = append(inv.Items, InvoiceItem{AssetID: it.AssetID, LineItem: it.LineItem})
	}
	return inv
}
