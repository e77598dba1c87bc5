package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

// ErrInsufficientStock is returned when an adjustment would go below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// inventoryRepository implements the InventoryRepository interface
type inventoryRepository struct {
	db    *gorm.DB
	guard *QuotaGuard
}

// NewInventoryRepository creates a new inventory repository instance
func NewInventoryRepository(db *gorm.DB, guard *QuotaGuard) InventoryRepository {
	return &inventoryRepository{db: db, guard: guard}
}

// Create inserts an item if the organization has room under maxInventoryItems.
func (r *inventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	_, err := r.guard.CreateWithinQuota(ctx, item.OrganizationID, entitlements.ResourceInventoryItems, func(tx *gorm.DB) error {
		return tx.Create(item).Error
	})
	return err
}

// GetByID retrieves an inventory item
func (r *inventoryRepository) GetByID(orgID, id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := tenant(r.db, orgID).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// List retrieves a page of items. Status "low" filters items at or below
// their reorder level.
func (r *inventoryRepository) List(orgID uint, opts ListOptions) ([]models.InventoryItem, int64, error) {
	q := tenant(r.db.Model(&models.InventoryItem{}), orgID)
	if opts.Search != "" {
		p := likePattern(opts.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", p, p)
	}
	if opts.Status == "low" {
		q = q.Where("reorder_level > 0 AND quantity <= reorder_level")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.InventoryItem
	err := paginate(q, opts).Order("name, id").Find(&items).Error
	return items, total, err
}

// ListAll returns every item of the organization
func (r *inventoryRepository) ListAll(orgID uint) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := tenant(r.db, orgID).Order("id").Find(&items).Error
	return items, err
}

// Update updates an existing item
func (r *inventoryRepository) Update(item *models.InventoryItem) error {
	res := tenant(r.db.Model(item), item.OrganizationID).
		Select("sku", "name", "category", "quantity", "unit_cost", "reorder_level", "location").
		Updates(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft deletes an item
func (r *inventoryRepository) Delete(orgID, id uint) error {
	return deleteScoped(r.db, &models.InventoryItem{}, orgID, id)
}

// Adjust changes the quantity atomically and never lets it go negative.
func (r *inventoryRepository) Adjust(orgID, id uint, delta int64) (*models.InventoryItem, error) {
	res := tenant(r.db.Model(&models.InventoryItem{}), orgID).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(orgID, id); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientStock
	}
	return r.GetByID(orgID, id)
}
