package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
)

// ErrReservationConflict is returned when the asset is already booked for an
// overlapping range.
var ErrReservationConflict = errors.New("asset is already reserved for this period")

// reservationRepository implements the ReservationRepository interface
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new reservation repository instance
func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

// Create books an asset. The asset and client must belong to the
// organization and the asset must be free for the whole range. Amount
// defaults to days times the asset daily rate.
func (r *reservationRepository) Create(reservation *models.Reservation) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tenant(tx, reservation.OrganizationID).First(&asset, reservation.AssetID).Error; err != nil {
			return err
		}
		if err := tenant(tx, reservation.OrganizationID).Select("id").First(&models.Client{}, reservation.ClientID).Error; err != nil {
			return err
		}
		var overlapping int64
		err := tx.Model(&models.Reservation{}).
			Where("asset_id = ? AND status IN ?", reservation.AssetID,
				[]string{models.ReservationStatusPending, models.ReservationStatusConfirmed}).
			Where("starts_at < ? AND ends_at > ?", reservation.EndsAt, reservation.StartsAt).
			Count(&overlapping).Error
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrReservationConflict
		}
		if reservation.Amount == 0 {
			reservation.Amount = reservation.Days() * asset.DailyRate
		}
		return tx.Create(reservation).Error
	})
}

// GetByID retrieves a reservation with asset and client
func (r *reservationRepository) GetByID(orgID, id uint) (*models.Reservation, error) {
	var res models.Reservation
	if err := tenant(r.db, orgID).Preload("Asset").Preload("Client").First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// List retrieves a page of reservations, newest start first
func (r *reservationRepository) List(orgID uint, opts ListOptions) ([]models.Reservation, int64, error) {
	q := tenant(r.db.Model(&models.Reservation{}), orgID)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Reservation
	err := paginate(q, opts).Preload("Asset").Preload("Client").Order("starts_at DESC, id DESC").Find(&list).Error
	return list, total, err
}

// UpdateStatus changes the reservation status
func (r *reservationRepository) UpdateStatus(orgID, id uint, status string) error {
	res := tenant(r.db.Model(&models.Reservation{}), orgID).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
