package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

// ReminderInterval is the minimum gap between two reminders of one invoice.
const ReminderInterval = 24 * time.Hour

// invoiceRepository implements the InvoiceRepository interface
type invoiceRepository struct {
	db    *gorm.DB
	guard *QuotaGuard
}

// NewInvoiceRepository creates a new invoice repository instance
func NewInvoiceRepository(db *gorm.DB, guard *QuotaGuard) InvoiceRepository {
	return &invoiceRepository{db: db, guard: guard}
}

// Create numbers and inserts an invoice with its items if the monthly
// invoice quota allows it.
func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	_, err := r.guard.CreateWithinQuota(ctx, invoice.OrganizationID, entitlements.ResourceInvoicesPerMonth, func(tx *gorm.DB) error {
		return createInvoiceTx(tx, invoice)
	})
	return err
}

func createInvoiceTx(tx *gorm.DB, invoice *models.Invoice) error {
	if err := tenant(tx, invoice.OrganizationID).Select("id").First(&models.Client{}, invoice.ClientID).Error; err != nil {
		return err
	}
	if err := invoice.Recalculate(); err != nil {
		return err
	}
	number, err := nextNumber(tx, &models.Invoice{}, invoice.OrganizationID, InvoiceNumberPrefix)
	if err != nil {
		return err
	}
	invoice.Number = number
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusDraft
	}
	return tx.Create(invoice).Error
}

// GetByID retrieves an invoice with its items and client
func (r *invoiceRepository) GetByID(orgID, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := tenant(r.db, orgID).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Client").
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByPublicToken finds a sent invoice by the token of its public link.
// This is the only lookup that is not scoped to an organization.
func (r *invoiceRepository) GetByPublicToken(token string) (*models.Invoice, error) {
	if token == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var invoice models.Invoice
	err := r.db.Where("public_token = ?", token).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List retrieves a page of invoices
func (r *invoiceRepository) List(orgID uint, opts ListOptions) ([]models.Invoice, int64, error) {
	q := tenant(r.db.Model(&models.Invoice{}), orgID)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.Search != "" {
		q = q.Where("LOWER(number) LIKE ?", likePattern(opts.Search))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var invoices []models.Invoice
	err := paginate(q, opts).Preload("Client").Order("created_at DESC, id DESC").Find(&invoices).Error
	return invoices, total, err
}

// ListAll returns every invoice of the organization
func (r *invoiceRepository) ListAll(orgID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := tenant(r.db, orgID).Preload("Client").Order("id").Find(&invoices).Error
	return invoices, err
}

// Update stores header columns and replaces the items.
func (r *invoiceRepository) Update(invoice *models.Invoice) error {
	if err := invoice.Recalculate(); err != nil {
		return err
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tenant(tx.Model(invoice), invoice.OrganizationID).
			Select("client_id", "status", "currency", "issue_date", "due_date", "tax_rate", "subtotal",
				"tax_amount", "total", "amount_paid", "notes", "public_token", "sent_at", "paid_at", "document_key").
			Updates(invoice)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		for i := range invoice.Items {
			invoice.Items[i].ID = 0
			invoice.Items[i].InvoiceID = invoice.ID
		}
		if len(invoice.Items) == 0 {
			return nil
		}
		return tx.Create(&invoice.Items).Error
	})
}

// Delete soft deletes an invoice. The monthly quota slot stays used.
func (r *invoiceRepository) Delete(orgID, id uint) error {
	return deleteScoped(r.db, &models.Invoice{}, orgID, id)
}

// ListDue returns sent or overdue invoices past their due date that have not
// been reminded within ReminderInterval, across all organizations.
func (r *invoiceRepository) ListDue(now time.Time, limit int) ([]models.Invoice, error) {
	today := startOfDay(now)
	var invoices []models.Invoice
	err := r.db.Preload("Client").
		Where("status IN ? AND due_date < ?", []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}, today).
		Where("last_reminder_at IS NULL OR last_reminder_at <= ?", now.Add(-ReminderInterval)).
		Order("due_date, id").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}

// MarkOverdue flips sent invoices past their due date to overdue.
func (r *invoiceRepository) MarkOverdue(now time.Time) (int64, error) {
	res := r.db.Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceStatusSent, startOfDay(now)).
		Update("status", models.InvoiceStatusOverdue)
	return res.RowsAffected, res.Error
}

// MarkReminded records a sent reminder.
func (r *invoiceRepository) MarkReminded(id uint, at time.Time) error {
	return r.db.Model(&models.Invoice{}).Where("id = ?", id).Update("last_reminder_at", at).Error
}

func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
