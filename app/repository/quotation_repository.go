package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

// ErrQuotationNotConvertible is returned for drafts, rejected, expired or
// already converted quotations.
var ErrQuotationNotConvertible = errors.New("quotation cannot be converted")

// quotationRepository implements the QuotationRepository interface
type quotationRepository struct {
	db    *gorm.DB
	guard *QuotaGuard
}

// NewQuotationRepository creates a new quotation repository instance
func NewQuotationRepository(db *gorm.DB, guard *QuotaGuard) QuotationRepository {
	return &quotationRepository{db: db, guard: guard}
}

// Create numbers and inserts a quotation if the monthly quotation quota
// allows it.
func (r *quotationRepository) Create(ctx context.Context, quotation *models.Quotation) error {
	_, err := r.guard.CreateWithinQuota(ctx, quotation.OrganizationID, entitlements.ResourceQuotationsPerMonth, func(tx *gorm.DB) error {
		if err := tenant(tx, quotation.OrganizationID).Select("id").First(&models.Client{}, quotation.ClientID).Error; err != nil {
			return err
		}
		if err := quotation.Recalculate(); err != nil {
			return err
		}
		number, err := nextNumber(tx, &models.Quotation{}, quotation.OrganizationID, QuotationNumberPrefix)
		if err != nil {
			return err
		}
		quotation.Number = number
		if quotation.Status == "" {
			quotation.Status = models.QuotationStatusDraft
		}
		return tx.Create(quotation).Error
	})
	return err
}

// GetByID retrieves a quotation with its items and client
func (r *quotationRepository) GetByID(orgID, id uint) (*models.Quotation, error) {
	var q models.Quotation
	err := tenant(r.db, orgID).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Client").
		First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// List retrieves a page of quotations
func (r *quotationRepository) List(orgID uint, opts ListOptions) ([]models.Quotation, int64, error) {
	q := tenant(r.db.Model(&models.Quotation{}), orgID)
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
	var quotations []models.Quotation
	err := paginate(q, opts).Preload("Client").Order("created_at DESC, id DESC").Find(&quotations).Error
	return quotations, total, err
}

// Update stores header columns and replaces the items.
func (r *quotationRepository) Update(quotation *models.Quotation) error {
	if err := quotation.Recalculate(); err != nil {
		return err
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tenant(tx.Model(quotation), quotation.OrganizationID).
			Select("client_id", "status", "currency", "issue_date", "valid_until", "tax_rate",
				"subtotal", "tax_amount", "total", "notes").
			Updates(quotation)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("quotation_id = ?", quotation.ID).Delete(&models.QuotationItem{}).Error; err != nil {
			return err
		}
		for i := range quotation.Items {
			quotation.Items[i].ID = 0
			quotation.Items[i].QuotationID = quotation.ID
		}
		if len(quotation.Items) == 0 {
			return nil
		}
		return tx.Create(&quotation.Items).Error
	})
}

// Delete soft deletes a quotation
func (r *quotationRepository) Delete(orgID, id uint) error {
	return deleteScoped(r.db, &models.Quotation{}, orgID, id)
}

// Convert creates an invoice from the quotation. The new invoice counts
// against the monthly invoice quota; the quotation is marked accepted and
// linked in the same transaction.
func (r *quotationRepository) Convert(ctx context.Context, orgID, id uint, now time.Time, dueDays int) (*models.Invoice, error) {
	var invoice *models.Invoice
	_, err := r.guard.CreateWithinQuota(ctx, orgID, entitlements.ResourceInvoicesPerMonth, func(tx *gorm.DB) error {
		var q models.Quotation
		if err := tenant(tx, orgID).Preload("Items").First(&q, id).Error; err != nil {
			return err
		}
		if !q.CanConvert(now) {
			return ErrQuotationNotConvertible
		}
		invoice = q.ToInvoice(now, dueDays)
		if err := createInvoiceTx(tx, invoice); err != nil {
			return err
		}
		return tx.Model(&q).Updates(map[string]interface{}{
			"status":     models.QuotationStatusAccepted,
			"invoice_id": invoice.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}
