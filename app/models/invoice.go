package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Invoice is a numbered bill for a client. Numbers are unique per
// organization (INV-000123).
type Invoice struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"not null;index;index:ux_invoices_org_number,unique,priority:1" json:"organization_id"`
	ClientID       uint           `gorm:"not null;index" json:"client_id" validate:"required"`
	Client         *Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	QuotationID    *uint          `gorm:"index" json:"quotation_id,omitempty"`
	Number         string         `gorm:"type:varchar(32);not null;index:ux_invoices_org_number,unique,priority:2" json:"number"`
	Status         string         `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Currency       string         `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	IssueDate      time.Time      `gorm:"type:date" json:"issue_date"`
	DueDate        time.Time      `gorm:"type:date;index" json:"due_date"`
	TaxRate        int64          `gorm:"not null;default:0" json:"tax_rate" validate:"gte=0,lte=10000"`
	Subtotal       int64          `gorm:"not null;default:0" json:"subtotal"`
	TaxAmount      int64          `gorm:"not null;default:0" json:"tax_amount"`
	Total          int64          `gorm:"not null;default:0" json:"total"`
	AmountPaid     int64          `gorm:"not null;default:0" json:"amount_paid"`
	Notes          string         `gorm:"type:text" json:"notes"`
	PublicToken    string         `gorm:"type:varchar(32);index" json:"public_token,omitempty"`
	SentAt         *time.Time     `gorm:"type:timestamp;default:null" json:"sent_at,omitempty"`
	PaidAt         *time.Time     `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	LastReminderAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_reminder_at,omitempty"`
	DocumentKey    string         `gorm:"type:varchar(255);default:''" json:"-"`
	Items          []InvoiceItem  `gorm:"foreignKey:InvoiceID" json:"items"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// InvoiceItem is one billed line.
type InvoiceItem struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	InvoiceID uint  `gorm:"not null;index" json:"invoice_id"`
	AssetID   *uint `gorm:"index" json:"asset_id,omitempty"`
	LineItem  `gorm:"embedded"`
}

// Recalculate recomputes item and document totals.
func (inv *Invoice) Recalculate() error {
	items := make([]*LineItem, 0, len(inv.Items))
	for i := range inv.Items {
		items = append(items, &inv.Items[i].LineItem)
	}
	t, err := ComputeTotals(items, inv.TaxRate)
	if err != nil {
		return err
	}
	inv.Subtotal, inv.TaxAmount, inv.Total = t.Subtotal, t.Tax, t.Total
	return nil
}

// Balance is the amount still owed.
func (inv *Invoice) Balance() int64 {
	if b := inv.Total - inv.AmountPaid; b > 0 {
		return b
	}
	return 0
}

// IsOverdue reports whether a sent invoice is past its due date at now.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.Status != InvoiceStatusSent && inv.Status != InvoiceStatusOverdue {
		return false
	}
	end := time.Date(inv.DueDate.Year(), inv.DueDate.Month(), inv.DueDate.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return !now.UTC().Before(end)
}

// IsEditable reports whether content may still change.
func (inv *Invoice) IsEditable() bool {
	return inv.Status == InvoiceStatusDraft
}

// ApplyPayment records a paid amount and flips the status when settled.
func (inv *Invoice) ApplyPayment(amount int64, now time.Time) {
	inv.AmountPaid += amount
	if inv.Balance() == 0 && inv.Total > 0 {
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
	}
}

// ApplyRefund reverses a refunded amount. A fully paid invoice returns to
// sent once money goes back.
func (inv *Invoice) ApplyRefund(amount int64) {
	inv.AmountPaid -= amount
	if inv.AmountPaid < 0 {
		inv.AmountPaid = 0
	}
	if inv.Status == InvoiceStatusPaid && inv.Balance() > 0 {
		inv.Status = InvoiceStatusSent
		inv.PaidAt = nil
	}
}
