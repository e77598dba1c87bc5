package models

import (
	"time"

	"gorm.io/gorm"
)

// Client is a customer of the organization, billed through invoices.
type Client struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=1,max=200"`
	Email          string         `gorm:"type:varchar(200);default:''" json:"email" validate:"omitempty,email,max=200"`
	Phone          string         `gorm:"type:varchar(50);default:''" json:"phone" validate:"max=50"`
	Company        string         `gorm:"type:varchar(200);default:''" json:"company" validate:"max=200"`
	Address        string         `gorm:"type:text" json:"address"`
	TaxID          string         `gorm:"type:varchar(64);default:''" json:"tax_id" validate:"max=64"`
	Notes          string         `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
