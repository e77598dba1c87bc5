package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

// ListOptions holds paging and filtering for list endpoints
type ListOptions struct {
	Offset int
	Limit  int
	Search string
	Status string
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	GetByProvider(provider, providerUserID string) (*models.User, error)
	LinkProvider(account *models.ProviderAccount) error
	GetSettings(userID uint) (*models.UserSettings, error)
	SaveSettings(settings *models.UserSettings) error
	RecordLogin(id uint, at time.Time) error
}

// OrganizationRepository defines tenant, membership and invitation operations
type OrganizationRepository interface {
	CreateWithOwner(org *models.Organization, ownerID uint) error
	GetByID(id uint) (*models.Organization, error)
	GetTier(id uint) (entitlements.Tier, error)
	SetTier(id uint, tier entitlements.Tier) error
	Update(org *models.Organization) error
	ListForUser(userID uint) ([]models.Organization, error)
	GetMember(orgID, userID uint) (*models.OrganizationMember, error)
	ListMembers(orgID uint) ([]models.OrganizationMember, error)
	RemoveMember(orgID, memberID uint, actorRole string) error
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	ListPendingInvitations(orgID uint, now time.Time) ([]models.Invitation, error)
	GetInvitationByToken(raw string) (*models.Invitation, error)
	RevokeInvitation(orgID, id uint) error
	AcceptInvitation(inv *models.Invitation, userID uint, now time.Time) (*models.OrganizationMember, error)
}

// AssetRepository defines asset and asset photo operations, scoped per organization
type AssetRepository interface {
	Create(ctx context.Context, asset *models.Asset) error
	GetByID(orgID, id uint) (*models.Asset, error)
	List(orgID uint, opts ListOptions) ([]models.Asset, int64, error)
	ListAll(orgID uint) ([]models.Asset, error)
	Update(asset *models.Asset) error
	Delete(orgID, id uint) error
	AddPhoto(photo *models.AssetPhoto) error
	ListPhotos(orgID, assetID uint) ([]models.AssetPhoto, error)
}

// InventoryRepository defines inventory operations, scoped per organization
type InventoryRepository interface {
	Create(ctx context.Context, item *models.InventoryItem) error
	GetByID(orgID, id uint) (*models.InventoryItem, error)
	List(orgID uint, opts ListOptions) ([]models.InventoryItem, int64, error)
	ListAll(orgID uint) ([]models.InventoryItem, error)
	Update(item *models.InventoryItem) error
	Delete(orgID, id uint) error
	Adjust(orgID, id uint, delta int64) (*models.InventoryItem, error)
}

// ClientRepository defines client operations, scoped per organization
type ClientRepository interface {
	Create(client *models.Client) error
	GetByID(orgID, id uint) (*models.Client, error)
	List(orgID uint, opts ListOptions) ([]models.Client, int64, error)
	ListAll(orgID uint) ([]models.Client, error)
	Update(client *models.Client) error
	Delete(orgID, id uint) error
}

// InvoiceRepository defines invoice operations, scoped per organization
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(orgID, id uint) (*models.Invoice, error)
	GetByPublicToken(token string) (*models.Invoice, error)
	List(orgID uint, opts ListOptions) ([]models.Invoice, int64, error)
	ListAll(orgID uint) ([]models.Invoice, error)
	Update(invoice *models.Invoice) error
	Delete(orgID, id uint) error
	ListDue(now time.Time, limit int) ([]models.Invoice, error)
	MarkOverdue(now time.Time) (int64, error)
	MarkReminded(id uint, at time.Time) error
}

// QuotationRepository defines quotation operations, scoped per organization
type QuotationRepository interface {
	Create(ctx context.Context, quotation *models.Quotation) error
	GetByID(orgID, id uint) (*models.Quotation, error)
	List(orgID uint, opts ListOptions) ([]models.Quotation, int64, error)
	Update(quotation *models.Quotation) error
	Delete(orgID, id uint) error
	Convert(ctx context.Context, orgID, id uint, now time.Time, dueDays int) (*models.Invoice, error)
}

// ReservationRepository defines reservation operations, scoped per organization
type ReservationRepository interface {
	Create(reservation *models.Reservation) error
	GetByID(orgID, id uint) (*models.Reservation, error)
	List(orgID uint, opts ListOptions) ([]models.Reservation, int64, error)
	UpdateStatus(orgID, id uint, status string) error
}

// PaymentRepository defines payment operations
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(orgID, id uint) (*models.Payment, error)
	ListByInvoice(orgID, invoiceID uint) ([]models.Payment, error)
	ApplyStatus(payment *models.Payment, status string, refunded int64, now time.Time) error
}

// UsageRepository reads quota usage and runs quota-gated inserts
type UsageRepository interface {
	Count(orgID uint, resource entitlements.Resource, now time.Time) (int64, error)
	Snapshot(orgID uint, now time.Time) (map[entitlements.Resource]int64, error)
	CreateWithinQuota(ctx context.Context, orgID uint, resource entitlements.Resource, create func(tx *gorm.DB) error) (entitlements.QuotaResult, error)
}

// QueueRepository defines the interface for cache/queue operations
type QueueRepository interface {
	ListLengths(ctx context.Context, keys ...string) (map[string]int64, error)
	CountKeys(ctx context.Context, pattern string) (int, error)
	DeleteMatching(ctx context.Context, pattern string) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Organization OrganizationRepository
	Asset        AssetRepository
	Inventory    InventoryRepository
	Client       ClientRepository
	Invoice      InvoiceRepository
	Quotation    QuotationRepository
	Reservation  ReservationRepository
	Payment      PaymentRepository
	Usage        UsageRepository
	Queue        QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	guard := NewQuotaGuard(db)
	return &Repositories{
		User:         NewUserRepository(db),
		Organization: NewOrganizationRepository(db, guard),
		Asset:        NewAssetRepository(db, guard),
		Inventory:    NewInventoryRepository(db, guard),
		Client:       NewClientRepository(db),
		Invoice:      NewInvoiceRepository(db, guard),
		Quotation:    NewQuotationRepository(db, guard),
		Reservation:  NewReservationRepository(db),
		Payment:      NewPaymentRepository(db),
		Usage:        guard,
		Queue:        NewQueueRepository(),
	}
}
