package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
	BillingProviderPolar  = "polar"
)

// BillingAccount links an organization to its customer record at a provider.
type BillingAccount struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OrganizationID     uint      `gorm:"not null;index:ux_billing_accounts_org_provider,unique" json:"organization_id"`
	Provider           string    `gorm:"type:varchar(20);not null;index:ux_billing_accounts_org_provider,unique;index:ux_billing_accounts_provider_customer,unique,priority:1" json:"provider"`
	ProviderCustomerID string    `gorm:"type:varchar(191);not null;index:ux_billing_accounts_provider_customer,unique,priority:2" json:"provider_customer_id"`
	Email              string    `gorm:"type:varchar(200);default:''" json:"email"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
