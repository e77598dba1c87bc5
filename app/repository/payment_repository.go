package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create records a new payment for an invoice of the same organization.
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tenant(tx, payment.OrganizationID).Select("id").First(&models.Invoice{}, payment.InvoiceID).Error; err != nil {
			return err
		}
		if payment.Status == "" {
			payment.Status = models.PaymentStatusPending
		}
		return tx.Create(payment).Error
	})
}

// GetByID retrieves a payment
func (r *paymentRepository) GetByID(orgID, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := tenant(r.db, orgID).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByInvoice returns the payments of an invoice
func (r *paymentRepository) ListByInvoice(orgID, invoiceID uint) ([]models.Payment, error) {
	var list []models.Payment
	err := tenant(r.db, orgID).Where("invoice_id = ?", invoiceID).Order("id").Find(&list).Error
	return list, err
}

// ApplyStatus stores a provider status and keeps the invoice balance in sync:
// the first transition to paid credits the invoice, refunded amounts debit it.
func (r *paymentRepository) ApplyStatus(payment *models.Payment, status string, refunded int64, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var current models.Payment
		if err := tenant(tx, payment.OrganizationID).First(&current, payment.ID).Error; err != nil {
			return err
		}
		var invoice models.Invoice
		if err := tenant(tx, payment.OrganizationID).First(&invoice, current.InvoiceID).Error; err != nil {
			return err
		}

		wasCollected := current.Status == models.PaymentStatusPaid ||
			current.Status == models.PaymentStatusPartiallyRefunded ||
			current.Status == models.PaymentStatusRefunded
		isCollected := status == models.PaymentStatusPaid ||
			status == models.PaymentStatusPartiallyRefunded ||
			status == models.PaymentStatusRefunded
		if !wasCollected && isCollected {
			invoice.ApplyPayment(current.Amount, now)
			current.PaidAt = &now
		}
		if refunded > current.RefundedAmount {
			invoice.ApplyRefund(refunded - current.RefundedAmount)
			current.RefundedAmount = refunded
		}

		current.Status = status
		current.LastCheckedAt = &now
		if err := tx.Model(&current).
			Select("status", "refunded_amount", "last_checked_at", "paid_at").
			Updates(&current).Error; err != nil {
			return err
		}
		if err := tx.Model(&invoice).
			Select("amount_paid", "status", "paid_at").
			Updates(&invoice).Error; err != nil {
			return err
		}
		*payment = current
		return nil
	})
}
