package models

import "time"

// BillingPlanMapping maps provider price/product references to tiers. Rows
// here take precedence over the STRIPE_PRICE_* / POLAR_PRODUCT_* settings.
type BillingPlanMapping struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Provider        string    `gorm:"type:varchar(20);not null;index:ux_billing_plan_mappings_ref,unique,priority:1;index" json:"provider"`
	ProviderPlanRef string    `gorm:"type:varchar(191);not null;index:ux_billing_plan_mappings_ref,unique,priority:2" json:"provider_plan_ref"`
	Tier            string    `gorm:"type:varchar(50);not null;default:'free';index" json:"tier"`
	BillingInterval string    `gorm:"type:varchar(16);not null;default:'unknown'" json:"billing_interval"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
