package repository

import (
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
)

// clientRepository implements the ClientRepository interface
type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository instance
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

// Create creates a new client. Clients are not quota limited.
func (r *clientRepository) Create(client *models.Client) error {
	return r.db.Create(client).Error
}

// GetByID retrieves a client
func (r *clientRepository) GetByID(orgID, id uint) (*models.Client, error) {
	var client models.Client
	if err := tenant(r.db, orgID).First(&client, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// List retrieves a page of clients
func (r *clientRepository) List(orgID uint, opts ListOptions) ([]models.Client, int64, error) {
	q := tenant(r.db.Model(&models.Client{}), orgID)
	if opts.Search != "" {
		p := likePattern(opts.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", p, p, p)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var clients []models.Client
	err := paginate(q, opts).Order("name, id").Find(&clients).Error
	return clients, total, err
}

// ListAll returns every client of the organization
func (r *clientRepository) ListAll(orgID uint) ([]models.Client, error) {
	var clients []models.Client
	err := tenant(r.db, orgID).Order("id").Find(&clients).Error
	return clients, err
}

// Update updates an existing client
func (r *clientRepository) Update(client *models.Client) error {
	res := tenant(r.db.Model(client), client.OrganizationID).
		Select("name", "email", "phone", "company", "address", "tax_id", "notes").
		Updates(client)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft deletes a client
func (r *clientRepository) Delete(orgID, id uint) error {
	return deleteScoped(r.db, &models.Client{}, orgID, id)
}
