package models

import (
	"time"

	"gorm.io/gorm"
)

// InventoryItem is a stock-keeping unit with a quantity on hand.
type InventoryItem struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"not null;index;index:ux_inventory_org_sku,unique,priority:1" json:"organization_id"`
	SKU            string         `gorm:"type:varchar(64);not null;index:ux_inventory_org_sku,unique,priority:2" json:"sku" validate:"required,max=64"`
	Name           string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=1,max=200"`
	Category       string         `gorm:"type:varchar(100);default:''" json:"category" validate:"max=100"`
	Quantity       int64          `gorm:"not null;default:0" json:"quantity" validate:"gte=0"`
	UnitCost       int64          `gorm:"not null;default:0" json:"unit_cost" validate:"gte=0"`
	ReorderLevel   int64          `gorm:"not null;default:0" json:"reorder_level" validate:"gte=0"`
	Location       string         `gorm:"type:varchar(200);default:''" json:"location" validate:"max=200"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// NeedsReorder reports whether stock has fallen to the reorder level.
func (i *InventoryItem) NeedsReorder() bool {
	return i.ReorderLevel > 0 && i.Quantity <= i.ReorderLevel
}

// StockValue is quantity times unit cost in cents.
func (i *InventoryItem) StockValue() int64 {
	return i.Quantity * i.UnitCost
}
