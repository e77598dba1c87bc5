package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User is a login identity. Access to tenant data goes through
// OrganizationMember rows, never through the user record itself. Users sign
// in through OAuth, a Supabase token or an API key, so no password is kept.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	Email       string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Role        string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status      string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	AvatarURL   string         `gorm:"type:varchar(255);default:''" json:"avatar_url" validate:"max=255"`
	LastLoginAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

var userValidator = validator.New()

func (u *User) Validate() error {
	return userValidator.Struct(u)
}

// NewUser builds an active user from an external identity. A name shorter
// than two characters falls back to the local part of the email.
func NewUser(name, email, avatarURL string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		name, _, _ = strings.Cut(email, "@")
	}
	if len(name) < 2 {
		name = "User"
	}
	u := &User{
		Name:      name,
		Email:     email,
		AvatarURL: avatarURL,
		Role:      ROLE_USER,
		Status:    STATUS_ACTIVE,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// IsPlatformAdmin reports whether the user may use the admin endpoints.
func (u *User) IsPlatformAdmin() bool {
	return u.Role == ROLE_ADMIN
}
