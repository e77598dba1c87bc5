package models

import "time"

// Normalized payment statuses shared by every provider adapter.
const (
	PaymentStatusPending           = "pending"
	PaymentStatusPaid              = "paid"
	PaymentStatusFailed            = "failed"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
	PaymentStatusCancelled         = "cancelled"
)

// Payment is a charge against an invoice collected through a provider.
type Payment struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;index" json:"organization_id"`
	InvoiceID      uint       `gorm:"not null;index" json:"invoice_id"`
	Provider       string     `gorm:"type:varchar(20);not null;index:ux_payments_provider_ref,unique,priority:1" json:"provider"`
	ProviderRef    string     `gorm:"type:varchar(191);not null;index:ux_payments_provider_ref,unique,priority:2" json:"provider_ref"`
	Amount         int64      `gorm:"not null" json:"amount"`
	RefundedAmount int64      `gorm:"not null;default:0" json:"refunded_amount"`
	Currency       string     `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Status         string     `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	CheckoutURL    string     `gorm:"type:varchar(500);default:''" json:"checkout_url,omitempty"`
	LastCheckedAt  *time.Time `gorm:"type:timestamp;default:null" json:"last_checked_at,omitempty"`
	PaidAt         *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Refundable is what can still be returned to the payer.
func (p *Payment) Refundable() int64 {
	if p.Status != PaymentStatusPaid && p.Status != PaymentStatusPartiallyRefunded {
		return 0
	}
	return p.Amount - p.RefundedAmount
}

// IsFinal reports whether no further provider updates are expected.
func (p *Payment) IsFinal() bool {
	switch p.Status {
	case PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}
