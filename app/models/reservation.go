package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCompleted = "completed"
	ReservationStatusCancelled = "cancelled"
)

var ErrInvalidReservationRange = errors.New("reservation end must be after start")

// Reservation books an asset for a client over a time range.
type Reservation struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	AssetID        uint           `gorm:"not null;index" json:"asset_id" validate:"required"`
	Asset          *Asset         `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	ClientID       uint           `gorm:"not null;index" json:"client_id" validate:"required"`
	Client         *Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	StartsAt       time.Time      `gorm:"not null;index" json:"starts_at" validate:"required"`
	EndsAt         time.Time      `gorm:"not null" json:"ends_at" validate:"required"`
	Status         string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount         int64          `gorm:"not null;default:0" json:"amount" validate:"gte=0"`
	Notes          string         `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Days is the number of started days covered by the reservation.
func (r *Reservation) Days() int64 {
	d := r.EndsAt.Sub(r.StartsAt)
	if d <= 0 {
		return 0
	}
	days := int64(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Overlaps reports whether two active reservations share any instant.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartsAt.Before(end) && start.Before(r.EndsAt)
}

// BeforeCreate validates the range.
func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if !r.EndsAt.After(r.StartsAt) {
		return ErrInvalidReservationRange
	}
	if r.Status == "" {
		r.Status = ReservationStatusPending
	}
	return nil
}
