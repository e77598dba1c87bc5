package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/auth"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

// RequireAPIAuth accepts a web session, an API key or a bearer token, in
// that order. It answers 401 JSON instead of redirecting.
func RequireAPIAuth(verifier *auth.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if uc := usercontext.GetUserContext(c); uc.IsLoggedIn && uc.OrganizationID != 0 {
			return c.Next()
		}
		if key := extractAPIKeyFromHeader(c); key != "" {
			return authenticateAPIKey(c, key)
		}
		if token := bearerToken(c); token != "" && verifier.Enabled() {
			return authenticateBearer(c, verifier, token)
		}
		return response.Error(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}
}

// RequireAuth ensures a logged-in web session.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return response.Error(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}
	return c.Next()
}

// RequireRole allows members whose organization role is one of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		for _, r := range roles {
			if uc.Role == r {
				return c.Next()
			}
		}
		return response.Error(c, fiber.StatusForbidden, "forbidden", "insufficient organization role")
	}
}

// RequireManager is RequireRole for owners and admins.
var RequireManager = RequireRole(models.MemberRoleOwner, models.MemberRoleAdmin)

// RequireAdmin ensures a platform admin.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return response.Error(c, fiber.StatusForbidden, "forbidden", "admin only")
	}
	return c.Next()
}
