package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/metrics"
)

// QuotaGuard counts quota usage and serializes quota-gated inserts per
// organization. Usage counting and the insert run in one transaction that
// holds a row lock on the organization, so two concurrent creators cannot
// both observe usage = limit-1.
type QuotaGuard struct {
	db  *gorm.DB
	now func() time.Time
}

// NewQuotaGuard creates a guard on db.
func NewQuotaGuard(db *gorm.DB) *QuotaGuard {
	return &QuotaGuard{db: db, now: time.Now}
}

// MonthBounds returns [start, end) of the UTC calendar month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// CountForQuota returns the current usage of resource for an organization.
// Monthly resources include soft-deleted rows: deleting an invoice does not
// hand the slot back within the same month.
func CountForQuota(db *gorm.DB, orgID uint, resource entitlements.Resource, now time.Time) (int64, error) {
	var count int64
	var err error
	switch resource {
	case entitlements.ResourceAssets:
		err = db.Model(&models.Asset{}).Where("organization_id = ?", orgID).Count(&count).Error
	case entitlements.ResourceInventoryItems:
		err = db.Model(&models.InventoryItem{}).Where("organization_id = ?", orgID).Count(&count).Error
	case entitlements.ResourceInvoicesPerMonth:
		start, end := MonthBounds(now)
		err = db.Unscoped().Model(&models.Invoice{}).
			Where("organization_id = ? AND created_at >= ? AND created_at < ?", orgID, start, end).
			Count(&count).Error
	case entitlements.ResourceQuotationsPerMonth:
		start, end := MonthBounds(now)
		err = db.Unscoped().Model(&models.Quotation{}).
			Where("organization_id = ? AND created_at >= ? AND created_at < ?", orgID, start, end).
			Count(&count).Error
	case entitlements.ResourceUsers:
		var members, pending int64
		if err = db.Model(&models.OrganizationMember{}).Where("organization_id = ?", orgID).Count(&members).Error; err != nil {
			break
		}
		err = db.Model(&models.Invitation{}).
			Where("organization_id = ? AND status = ? AND expires_at > ?", orgID, models.InvitationStatusPending, now).
			Count(&pending).Error
		count = members + pending
	default:
		return 0, fmt.Errorf("count usage: %w", &entitlements.PolicyError{
			Kind: entitlements.KindInvalidArgument,
			Msg:  fmt.Sprintf("unknown resource %q", resource),
		})
	}
	if err != nil {
		return 0, fmt.Errorf("count %s for organization %d: %w", resource, orgID, err)
	}
	return count, nil
}

// Count implements UsageRepository.
func (g *QuotaGuard) Count(orgID uint, resource entitlements.Resource, now time.Time) (int64, error) {
	return CountForQuota(g.db, orgID, resource, now)
}

// Snapshot returns the usage of every resource.
func (g *QuotaGuard) Snapshot(orgID uint, now time.Time) (map[entitlements.Resource]int64, error) {
	resources := entitlements.AllResources()
	out := make(map[entitlements.Resource]int64, len(resources))
	for _, r := range resources {
		n, err := CountForQuota(g.db, orgID, r, now)
		if err != nil {
			return nil, err
		}
		out[r] = n
	}
	return out, nil
}

// CreateWithinQuota locks the organization, re-reads its tier, checks the
// quota and runs create in the same transaction. A rejected check returns the
// *entitlements.PolicyError and create is never called.
func (g *QuotaGuard) CreateWithinQuota(ctx context.Context, orgID uint, resource entitlements.Resource, create func(tx *gorm.DB) error) (entitlements.QuotaResult, error) {
	var result entitlements.QuotaResult
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "tier").
			First(&org, orgID).Error; err != nil {
			return err
		}

		usage, err := CountForQuota(tx, orgID, resource, g.now())
		if err != nil {
			return err
		}

		result, err = entitlements.CheckQuota(org.Tier, resource, usage)
		if err != nil {
			return err
		}
		metrics.ObserveQuota(string(result.Tier), string(resource), result.Allowed)
		if qerr := result.Err(); qerr != nil {
			log.Debugf("[QuotaGuard] Organization %d rejected for %s: usage %d, limit %s", orgID, resource, usage, result.Limit)
			return qerr
		}

		return create(tx)
	})
	return result, err
}
