package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

// assetRepository implements the AssetRepository interface
type assetRepository struct {
	db    *gorm.DB
	guard *QuotaGuard
}

// NewAssetRepository creates a new asset repository instance
func NewAssetRepository(db *gorm.DB, guard *QuotaGuard) AssetRepository {
	return &assetRepository{db: db, guard: guard}
}

// Create inserts an asset if the organization has room under maxAssets.
func (r *assetRepository) Create(ctx context.Context, asset *models.Asset) error {
	_, err := r.guard.CreateWithinQuota(ctx, asset.OrganizationID, entitlements.ResourceAssets, func(tx *gorm.DB) error {
		if asset.AssignedClientID != nil {
			if err := tenant(tx, asset.OrganizationID).Select("id").First(&models.Client{}, *asset.AssignedClientID).Error; err != nil {
				return err
			}
		}
		return tx.Create(asset).Error
	})
	return err
}

// GetByID retrieves an asset with its photos
func (r *assetRepository) GetByID(orgID, id uint) (*models.Asset, error) {
	var asset models.Asset
	err := tenant(r.db, orgID).Preload("Photos").First(&asset, id).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// List retrieves a page of assets and the total match count
func (r *assetRepository) List(orgID uint, opts ListOptions) ([]models.Asset, int64, error) {
	q := tenant(r.db.Model(&models.Asset{}), orgID)
	if opts.Search != "" {
		p := likePattern(opts.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(serial_number) LIKE ? OR LOWER(category) LIKE ?", p, p, p)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var assets []models.Asset
	err := paginate(q, opts).Order("created_at DESC, id DESC").Find(&assets).Error
	return assets, total, err
}

// ListAll returns every asset of the organization for exports and reports.
func (r *assetRepository) ListAll(orgID uint) ([]models.Asset, error) {
	var assets []models.Asset
	err := tenant(r.db, orgID).Order("id").Find(&assets).Error
	return assets, err
}

// Update updates an existing asset. The organization id never changes.
func (r *assetRepository) Update(asset *models.Asset) error {
	res := tenant(r.db.Model(asset), asset.OrganizationID).
		Select("name", "serial_number", "category", "status", "location", "description",
			"purchase_price", "purchase_date", "current_value", "daily_rate", "assigned_client_id", "thumbnail_key").
		Updates(asset)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft deletes an asset, freeing its quota slot.
func (r *assetRepository) Delete(orgID, id uint) error {
	return deleteScoped(r.db, &models.Asset{}, orgID, id)
}

// AddPhoto stores photo metadata. The first photo becomes the asset thumbnail.
func (r *assetRepository) AddPhoto(photo *models.AssetPhoto) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tenant(tx, photo.OrganizationID).Select("id", "thumbnail_key").First(&asset, photo.AssetID).Error; err != nil {
			return err
		}
		if err := tx.Create(photo).Error; err != nil {
			return err
		}
		if asset.ThumbnailKey == "" && photo.ThumbnailKey != "" {
			return tx.Model(&models.Asset{}).Where("id = ?", asset.ID).Update("thumbnail_key", photo.ThumbnailKey).Error
		}
		return nil
	})
}

// ListPhotos returns all photos of an asset
func (r *assetRepository) ListPhotos(orgID, assetID uint) ([]models.AssetPhoto, error) {
	var photos []models.AssetPhoto
	err := tenant(r.db, orgID).Where("asset_id = ?", assetID).Order("id").Find(&photos).Error
	return photos, err
}
