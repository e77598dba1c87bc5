package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	AssetStatusAvailable   = "available"
	AssetStatusInUse       = "in_use"
	AssetStatusMaintenance = "maintenance"
	AssetStatusRetired     = "retired"
)

// Asset is a tracked physical item. Money fields are integer cents in the
// organization currency.
type Asset struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	OrganizationID   uint           `gorm:"not null;index" json:"organization_id"`
	Name             string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=1,max=200"`
	SerialNumber     string         `gorm:"type:varchar(120);default:''" json:"serial_number" validate:"max=120"`
	Category         string         `gorm:"type:varchar(100);default:'';index" json:"category" validate:"max=100"`
	Status           string         `gorm:"type:varchar(20);not null;default:'available';index" json:"status" validate:"omitempty,oneof=available in_use maintenance retired"`
	Location         string         `gorm:"type:varchar(200);default:''" json:"location" validate:"max=200"`
	Description      string         `gorm:"type:text" json:"description"`
	PurchasePrice    int64          `gorm:"not null;default:0" json:"purchase_price" validate:"gte=0"`
	PurchaseDate     *time.Time     `gorm:"type:date;default:null" json:"purchase_date,omitempty"`
	CurrentValue     int64          `gorm:"not null;default:0" json:"current_value" validate:"gte=0"`
	DailyRate        int64          `gorm:"not null;default:0" json:"daily_rate" validate:"gte=0"`
	AssignedClientID *uint          `gorm:"index" json:"assigned_client_id,omitempty"`
	ThumbnailKey     string         `gorm:"type:varchar(255);default:''" json:"-"`
	Photos           []AssetPhoto   `gorm:"foreignKey:AssetID" json:"photos,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Asset) Validate() error {
	return validator.New().Struct(a)
}

// BeforeCreate defaults the status.
func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = AssetStatusAvailable
	}
	return nil
}

// AssetPhoto is an uploaded picture of an asset stored in object storage.
type AssetPhoto struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;index" json:"organization_id"`
	AssetID        uint       `gorm:"not null;index" json:"asset_id"`
	ObjectKey      string     `gorm:"type:varchar(255);not null" json:"object_key"`
	ThumbnailKey   string     `gorm:"type:varchar(255);default:''" json:"thumbnail_key"`
	ContentType    string     `gorm:"type:varchar(100);default:''" json:"content_type"`
	FileSize       int64      `gorm:"default:0" json:"file_size"`
	Width          int        `gorm:"default:0" json:"width"`
	Height         int        `gorm:"default:0" json:"height"`
	TakenAt        *time.Time `gorm:"type:timestamp;default:null" json:"taken_at,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
