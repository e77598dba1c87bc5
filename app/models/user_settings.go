package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// UserSettings stores per-user preferences, the active organization and the
// personal API key. The organization tier is deliberately not stored here.
type UserSettings struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	UserID               uint           `gorm:"uniqueIndex" json:"user_id"`
	ActiveOrganizationID uint           `gorm:"index;default:0" json:"active_organization_id"`
	Locale               string         `gorm:"type:varchar(10);default:'en'" json:"locale"`
	Timezone             string         `gorm:"type:varchar(64);default:'UTC'" json:"timezone"`
	InvoiceReminders     bool           `gorm:"default:true" json:"invoice_reminders"`
	APIKeyHash           string         `gorm:"type:char(64);default:''" json:"-"`
	APIKeyPrefix         string         `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`
	APIKeyCreatedAt      *time.Time     `json:"api_key_created_at"`
	APIKeyLastUsedAt     *time.Time     `json:"api_key_last_used_at"`
	APIKeyRevokedAt      *time.Time     `json:"api_key_revoked_at"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const (
	apiKeyPrefix        = "at_"
	apiKeyDisplayLength = 16
)

// GetOrCreateUserSettings returns existing settings or creates defaults
func GetOrCreateUserSettings(db *gorm.DB, userID uint) (*UserSettings, error) {
	var us UserSettings
	if err := db.Where("user_id = ?", userID).First(&us).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			us = UserSettings{UserID: userID, Locale: "en", Timezone: "UTC", InvoiceReminders: true}
			if err := db.Create(&us).Error; err != nil {
				return nil, err
			}
			return &us, nil
		}
		return nil, err
	}
	return &us, nil
}

// HasActiveAPIKey reports whether the user can authenticate with an API key.
func (us *UserSettings) HasActiveAPIKey() bool {
	return us != nil && us.APIKeyHash != "" && us.APIKeyRevokedAt == nil
}

// IssueAPIKey replaces any previous key and returns the raw secret, which is
// shown once. Only the hash and a display prefix are kept. The caller saves
// the settings.
func (us *UserSettings) IssueAPIKey(now time.Time) (string, error) {
	raw, err := generateAPIKey()
	if err != nil {
		return "", err
	}
	us.APIKeyHash = HashAPIKey(raw)
	us.APIKeyPrefix = raw[:apiKeyDisplayLength]
	us.APIKeyCreatedAt = &now
	us.APIKeyRevokedAt = nil
	us.APIKeyLastUsedAt = nil
	return raw, nil
}

// RevokeAPIKey disables the key and keeps the revocation time.
func (us *UserSettings) RevokeAPIKey(now time.Time) {
	us.APIKeyHash = ""
	us.APIKeyPrefix = ""
	us.APIKeyRevokedAt = &now
	us.APIKeyLastUsedAt = nil
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(b)), nil
}

// IsAPIKey reports whether raw looks like one of our API keys.
func IsAPIKey(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), apiKeyPrefix)
}
