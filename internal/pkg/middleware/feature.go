package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

// LoadTier reads the organization tier from the database and stores it in
// Locals. The tier is never taken from the session, so a downgrade applies
// to the very next request.
func LoadTier(c *fiber.Ctx) error {
	if _, err := currentTier(c); err != nil {
		return response.FromError(c, err)
	}
	return c.Next()
}

// RequireFeature rejects the request with 403 unless the organization's tier
// enables f.
func RequireFeature(f entitlements.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tier, err := currentTier(c)
		if err != nil {
			return response.FromError(c, err)
		}
		if err := entitlements.RequireFeatureOrReject(string(tier), f); err != nil {
			return response.FromError(c, err)
		}
		return c.Next()
	}
}

// Tier returns the tier loaded by LoadTier or RequireFeature.
func Tier(c *fiber.Ctx) entitlements.Tier {
	if t, ok := c.Locals(usercontext.KeyTier).(entitlements.Tier); ok {
		return t
	}
	return entitlements.TierFree
}

func currentTier(c *fiber.Ctx) (entitlements.Tier, error) {
	if t, ok := c.Locals(usercontext.KeyTier).(entitlements.Tier); ok {
		return t, nil
	}
	orgID := usercontext.GetOrganizationID(c)
	if orgID == 0 {
		return "", fiber.NewError(fiber.StatusUnauthorized, "login required")
	}
	tier, err := repository.GetGlobalFactory().GetOrganizationRepository().GetTier(orgID)
	if err != nil {
		return "", err
	}
	c.Locals(usercontext.KeyTier, tier)
	return tier, nil
}
