package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
	"github.com/assettracer/assettracer/internal/pkg/utils"
)

// HandlePing answers the API health check.
func HandlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ping": "pong"})
}

// HandleGetMe returns the authenticated user, the active organization and
// every organization the user belongs to.
func HandleGetMe(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	r := repos()

	user, err := r.User.GetByID(uc.UserID)
	if err != nil {
		return apiError(c, err)
	}
	org, err := r.Organization.GetByID(uc.OrganizationID)
	if err != nil {
		return apiError(c, err)
	}
	orgs, err := r.Organization.ListForUser(uc.UserID)
	if err != nil {
		return apiError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"avatar_url":    utils.AvatarURL(user.AvatarURL, user.Email),
		"is_admin":      uc.IsAdmin,
		"auth_method":   uc.AuthMethod,
		"role":          uc.Role,
		"organization":  org,
		"tier":          org.EffectiveTier(),
		"organizations": orgs,
	})
}

type quotaStatus struct {
	Limit     entitlements.Limit `json:"limit"`
	Usage     int64              `json:"usage"`
	Remaining entitlements.Limit `json:"remaining"`
}

// HandleGetSubscription reports the organization tier, its limits and the
// current usage and remaining headroom per quota resource.
func HandleGetSubscription(c *fiber.Ctx) error {
	id := orgID(c)
	r := repos()

	tier, err := r.Organization.GetTier(id)
	if err != nil {
		return apiError(c, err)
	}
	usage, err := r.Usage.Snapshot(id, now())
	if err != nil {
		return apiError(c, err)
	}

	limits := entitlements.LimitsFor(tier)
	resources := entitlements.AllResources()
	quotas := make(map[entitlements.Resource]quotaStatus, len(resources))
	for _, res := range resources {
		limit, ok := limits.Quota(res)
		if !ok {
			return response.Error(c, fiber.StatusInternalServerError, "internal_server_error", "unknown resource "+string(res))
		}
		quotas[res] = quotaStatus{Limit: limit, Usage: usage[res], Remaining: limit.Sub(usage[res])}
	}

	return c.JSON(fiber.Map{
		"tier":     tier,
		"limits":   limits,
		"features": limits.EnabledFeatures(),
		"quotas":   quotas,
	})
}

// HandleRotateAPIKey issues a new personal API key and invalidates the old
// one. The raw key is only returned here.
func HandleRotateAPIKey(c *fiber.Ctx) error {
	users := repos().User
	settings, err := users.GetSettings(usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	raw, err := settings.IssueAPIKey(now())
	if err != nil {
		return apiError(c, err)
	}
	if err := users.SaveSettings(settings); err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key":    raw,
		"prefix":     settings.APIKeyPrefix,
		"created_at": settings.APIKeyCreatedAt,
	})
}

// HandleRevokeAPIKey disables the personal API key.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	users := repos().User
	settings, err := users.GetSettings(usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, err)
	}
	settings.RevokeAPIKey(now())
	if err := users.SaveSettings(settings); err != nil {
		return apiError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
