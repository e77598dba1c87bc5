package models

// All lists every persisted model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserSettings{},
		&ProviderAccount{},
		&Organization{},
		&OrganizationMember{},
		&Invitation{},
		&Client{},
		&Asset{},
		&AssetPhoto{},
		&InventoryItem{},
		&Quotation{},
		&QuotationItem{},
		&Invoice{},
		&InvoiceItem{},
		&Reservation{},
		&Payment{},
		&BillingAccount{},
		&BillingPlanMapping{},
		&BillingSubscription{},
		&BillingWebhookEvent{},
	}
}
