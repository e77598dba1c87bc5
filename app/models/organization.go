package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

// Organization is the tenant boundary. Tier is stored as a raw string and
// always read through EffectiveTier so legacy or corrupted values fall back
// to free.
type Organization struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Slug       string         `gorm:"type:varchar(191);uniqueIndex" json:"slug"`
	Tier       string         `gorm:"type:varchar(50);not null;default:'free'" json:"tier"`
	Currency   string         `gorm:"type:varchar(3);not null;default:'USD'" json:"currency" validate:"omitempty,len=3"`
	OwnerID    uint           `gorm:"index" json:"owner_id"`
	BrandName  string         `gorm:"type:varchar(150);default:''" json:"brand_name"`
	BrandColor string         `gorm:"type:varchar(7);default:''" json:"brand_color"`
	LogoURL    string         `gorm:"type:varchar(255);default:''" json:"logo_url"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// EffectiveTier resolves the stored tier.
func (o *Organization) EffectiveTier() entitlements.Tier {
	return entitlements.ResolveTier(o.Tier)
}

// DisplayName is the name printed on documents. Custom branding only applies
// while the tier allows it.
func (o *Organization) DisplayName() string {
	if o.BrandName != "" && entitlements.LimitsFor(o.EffectiveTier()).HasCustomBranding {
		return o.BrandName
	}
	return o.Name
}

// DisplayColor is the accent colour for documents and emails, empty when
// the tier has no custom branding.
func (o *Organization) DisplayColor() string {
	if entitlements.LimitsFor(o.EffectiveTier()).HasCustomBranding {
		return o.BrandColor
	}
	return ""
}

// BeforeCreate fills slug and defaults.
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.Slug == "" {
		base := strings.Trim(slugInvalidChars.ReplaceAllString(strings.ToLower(o.Name), "-"), "-")
		if base == "" {
			base = "org"
		}
		o.Slug = base + "-" + uuid.New().String()[:8]
	}
	if o.Tier == "" {
		o.Tier = string(entitlements.TierFree)
	}
	if o.Currency == "" {
		o.Currency = "USD"
	}
	return nil
}
