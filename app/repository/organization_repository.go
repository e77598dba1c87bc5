package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

// ErrInvitationNotUsable is returned when accepting a revoked, accepted or
// expired invitation.
var ErrInvitationNotUsable = errors.New("invitation is no longer valid")

// ErrLastOwner prevents removing the only owner of an organization.
var ErrLastOwner = errors.New("cannot remove the last owner")

// ErrOwnerRemoval is returned when a non-owner tries to remove an owner.
var ErrOwnerRemoval = errors.New("only owners can remove an owner")

// organizationRepository implements the OrganizationRepository interface
type organizationRepository struct {
	db    *gorm.DB
	guard *QuotaGuard
}

// NewOrganizationRepository creates a new organization repository instance
func NewOrganizationRepository(db *gorm.DB, guard *QuotaGuard) OrganizationRepository {
	return &organizationRepository{db: db, guard: guard}
}

// CreateWithOwner creates the organization and its owner membership, and
// makes it the owner's active organization.
func (r *organizationRepository) CreateWithOwner(org *models.Organization, ownerID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		org.OwnerID = ownerID
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		member := models.OrganizationMember{OrganizationID: org.ID, UserID: ownerID, Role: models.MemberRoleOwner}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		settings, err := models.GetOrCreateUserSettings(tx, ownerID)
		if err != nil {
			return err
		}
		if settings.ActiveOrganizationID == 0 {
			return tx.Model(settings).Update("active_organization_id", org.ID).Error
		}
		return nil
	})
}

// GetByID retrieves an organization by its ID
func (r *organizationRepository) GetByID(id uint) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// GetTier reads the tier fresh from the database.
func (r *organizationRepository) GetTier(id uint) (entitlements.Tier, error) {
	var org models.Organization
	if err := r.db.Select("id", "tier").First(&org, id).Error; err != nil {
		return entitlements.TierFree, err
	}
	return org.EffectiveTier(), nil
}

// SetTier stores a new tier.
func (r *organizationRepository) SetTier(id uint, tier entitlements.Tier) error {
	res := r.db.Model(&models.Organization{}).Where("id = ?", id).Update("tier", string(tier))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Update stores the editable profile and branding columns. Tier changes go
// through SetTier only.
func (r *organizationRepository) Update(org *models.Organization) error {
	return r.db.Model(org).
		Select("name", "currency", "brand_name", "brand_color", "logo_url").
		Updates(org).Error
}

// ListForUser returns all organizations the user belongs to.
func (r *organizationRepository) ListForUser(userID uint) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.Joins("JOIN organization_members m ON m.organization_id = organizations.id").
		Where("m.user_id = ?", userID).
		Order("organizations.id").
		Find(&orgs).Error
	return orgs, err
}

// GetMember returns the membership of a user in an organization.
func (r *organizationRepository) GetMember(orgID, userID uint) (*models.OrganizationMember, error) {
	var m models.OrganizationMember
	if err := r.db.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns all members with their users.
func (r *organizationRepository) ListMembers(orgID uint) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	err := r.db.Preload("User").Where("organization_id = ?", orgID).Order("id").Find(&members).Error
	return members, err
}

// RemoveMember deletes a membership on behalf of a member with actorRole.
// Owners can only be removed by owners, and the last owner not at all.
func (r *organizationRepository) RemoveMember(orgID, memberID uint, actorRole string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var m models.OrganizationMember
		if err := tx.Where("organization_id = ? AND id = ?", orgID, memberID).First(&m).Error; err != nil {
			return err
		}
		if m.Role == models.MemberRoleOwner {
			if actorRole != models.MemberRoleOwner {
				return ErrOwnerRemoval
			}
			var owners int64
			if err := tx.Model(&models.OrganizationMember{}).
				Where("organization_id = ? AND role = ?", orgID, models.MemberRoleOwner).
				Count(&owners).Error; err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}
		return tx.Delete(&m).Error
	})
}

// CreateInvitation stores a pending invitation. Pending invitations occupy a
// seat, so creation is gated by the maxUsers quota.
func (r *organizationRepository) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	if inv.Status == "" {
		inv.Status = models.InvitationStatusPending
	}
	_, err := r.guard.CreateWithinQuota(ctx, inv.OrganizationID, entitlements.ResourceUsers, func(tx *gorm.DB) error {
		return tx.Create(inv).Error
	})
	return err
}

// ListPendingInvitations returns invitations that still hold a seat.
func (r *organizationRepository) ListPendingInvitations(orgID uint, now time.Time) ([]models.Invitation, error) {
	var invs []models.Invitation
	err := r.db.Where("organization_id = ? AND status = ? AND expires_at > ?", orgID, models.InvitationStatusPending, now).
		Order("id").Find(&invs).Error
	return invs, err
}

// GetInvitationByToken looks up an invitation by its raw token.
func (r *organizationRepository) GetInvitationByToken(raw string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.Where("token_hash = ?", models.HashInvitationToken(raw)).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// RevokeInvitation frees the seat held by a pending invitation.
func (r *organizationRepository) RevokeInvitation(orgID, id uint) error {
	res := r.db.Model(&models.Invitation{}).
		Where("organization_id = ? AND id = ? AND status = ?", orgID, id, models.InvitationStatusPending).
		Update("status", models.InvitationStatusRevoked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AcceptInvitation turns a pending invitation into a membership. The seat was
// already counted while pending, so no quota check runs here.
func (r *organizationRepository) AcceptInvitation(inv *models.Invitation, userID uint, now time.Time) (*models.OrganizationMember, error) {
	if !inv.IsUsable(now) {
		return nil, ErrInvitationNotUsable
	}
	var member models.OrganizationMember
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", inv.ID, models.InvitationStatusPending).
			Updates(map[string]interface{}{"status": models.InvitationStatusAccepted, "accepted_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationNotUsable
		}

		err := tx.Where("organization_id = ? AND user_id = ?", inv.OrganizationID, userID).First(&member).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		member = models.OrganizationMember{OrganizationID: inv.OrganizationID, UserID: userID, Role: inv.Role}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		settings, err := models.GetOrCreateUserSettings(tx, userID)
		if err != nil {
			return err
		}
		return tx.Model(settings).Update("active_organization_id", inv.OrganizationID).Error
	})
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvitationStatusAccepted
	inv.AcceptedAt = &now
	return &member, nil
}
