package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/jobqueue"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

// Redis key patterns shown and flushed by the admin endpoints.
const (
	reportCachePattern  = "reports:*"
	reminderLockPattern = "reminder:invoice:*"
)

// AdminQueueController serves the platform admin view of the job queue and
// the Redis caches.
type AdminQueueController struct {
	queueRepo repository.QueueRepository
}

// NewAdminQueueController creates a new admin queue controller with repository
func NewAdminQueueController(queueRepo repository.QueueRepository) *AdminQueueController {
	return &AdminQueueController{queueRepo: queueRepo}
}

type tierOverrideRequest struct {
	Tier string `json:"tier" validate:"required,oneof=free pro business"`
}

// HandleQueueStats returns list lengths, job counters and cache key counts.
func (aqc *AdminQueueController) HandleQueueStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	lengths, err := aqc.queueRepo.ListLengths(ctx, jobqueue.JobQueueKey, jobqueue.JobProcessingKey)
	if err != nil {
		return apiError(c, err)
	}
	stats, err := jobqueue.GetManager().GetQueue().GetJobStats(ctx)
	if err != nil {
		return apiError(c, err)
	}
	reportKeys, err := aqc.queueRepo.CountKeys(ctx, reportCachePattern)
	if err != nil {
		return apiError(c, err)
	}
	reminderLocks, err := aqc.queueRepo.CountKeys(ctx, reminderLockPattern)
	if err != nil {
		return apiError(c, err)
	}

	return c.JSON(fiber.Map{
		"queue": fiber.Map{
			"pending":    lengths[jobqueue.JobQueueKey],
			"processing": lengths[jobqueue.JobProcessingKey],
			"stats":      stats,
			"running":    jobqueue.GetManager().IsRunning(),
		},
		"cache": fiber.Map{
			"report_keys":    reportKeys,
			"reminder_locks": reminderLocks,
		},
	})
}

// HandleFlushReportCache drops every cached report of every organization.
func (aqc *AdminQueueController) HandleFlushReportCache(c *fiber.Ctx) error {
	deleted, err := aqc.queueRepo.DeleteMatching(c.UserContext(), reportCachePattern)
	if err != nil {
		return apiError(c, err)
	}
	log.Infof("[Admin] User %d flushed %d report cache keys", usercontext.GetUserID(c), deleted)
	return c.JSON(fiber.Map{"deleted": deleted})
}

// HandleOverrideTier sets an organization tier by hand, for support cases
// outside the billing providers. The next webhook reconciliation wins.
func (aqc *AdminQueueController) HandleOverrideTier(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	var req tierOverrideRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	tier := entitlements.ResolveTier(req.Tier)
	if err := repos().Organization.SetTier(id, tier); err != nil {
		return apiError(c, err)
	}
	log.Infof("[Admin] User %d set organization %d to tier %s", usercontext.GetUserID(c), id, tier)
	return c.JSON(fiber.Map{"organization_id": id, "tier": tier})
}
