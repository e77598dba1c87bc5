package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	// WithContext binds queries of the returned repository to ctx.
	WithContext(ctx context.Context) Repository
	FindActivePlanMapping(provider, providerPlanRef, interval string) (*models.BillingPlanMapping, error)
	UpsertBillingAccount(account *models.BillingAccount) error
	GetBillingAccountByCustomerID(provider, customerID string) (*models.BillingAccount, error)
	GetBillingAccount(orgID uint, provider string) (*models.BillingAccount, error)
	UpsertSubscription(sub *models.BillingSubscription) error
	ListSubscriptionsByOrganization(orgID uint) ([]models.BillingSubscription, error)
	GetOrganization(orgID uint) (*models.Organization, error)
	SetOrganizationTier(orgID uint, tier entitlements.Tier) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, outcome string, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithContext(ctx context.Context) Repository {
	return &gormRepository{db: r.db.WithContext(ctx)}
}

func (r *gormRepository) FindActivePlanMapping(provider, providerPlanRef, interval string) (*models.BillingPlanMapping, error) {
	var m models.BillingPlanMapping
	err := r.db.
		Where("provider = ? AND provider_plan_ref = ? AND billing_interval = ? AND is_active = ?", provider, providerPlanRef, interval, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) UpsertBillingAccount(account *models.BillingAccount) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "provider"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_customer_id",
			"email",
			"updated_at",
		}),
	}).Create(account).Error; err != nil {
		return err
	}

	return r.db.Where("organization_id = ? AND provider = ?", account.OrganizationID, account.Provider).
		First(account).Error
}

func (r *gormRepository) GetBillingAccountByCustomerID(provider, customerID string) (*models.BillingAccount, error) {
	var account models.BillingAccount
	err := r.db.Where("provider = ? AND provider_customer_id = ?", provider, customerID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) GetBillingAccount(orgID uint, provider string) (*models.BillingAccount, error) {
	var account models.BillingAccount
	err := r.db.Where("organization_id = ? AND provider = ?", orgID, provider).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) UpsertSubscription(sub *models.BillingSubscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"organization_id",
			"provider_plan_ref",
			"tier",
			"billing_interval",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("provider = ? AND provider_subscription_id = ?", sub.Provider, sub.ProviderSubscriptionID).
		First(sub).Error
}

func (r *gormRepository) ListSubscriptionsByOrganization(orgID uint) ([]models.BillingSubscription, error) {
	var subs []models.BillingSubscription
	err := r.db.Where("organization_id = ?", orgID).Order("id").Find(&subs).Error
	return subs, err
}

func (r *gormRepository) GetOrganization(orgID uint) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, orgID).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) SetOrganizationTier(orgID uint, tier entitlements.Tier) error {
	res := r.db.Model(&models.Organization{}).Where("id = ?", orgID).Update("tier", string(tier))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, outcome string, processingError string) error {
	res := r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"outcome":          outcome,
		"processed_at":     time.Now(),
		"processing_error": processingError,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
