package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/database"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

// APIKeyAuthMiddleware authenticates requests carrying a user API key header.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return response.Error(c, fiber.StatusUnauthorized, "unauthorized", "Missing API key")
		}
		return authenticateAPIKey(c, apiKey)
	}
}

func authenticateAPIKey(c *fiber.Ctx, apiKey string) error {
	db := database.GetDB()
	if db == nil {
		log.Error("[APIKey] Database unavailable")
		return response.Error(c, fiber.StatusInternalServerError, "internal_server_error", "Database unavailable")
	}

	hash := models.HashAPIKey(apiKey)
	repo := repository.GetGlobalFactory().GetUserRepository()
	user, settings, err := repo.GetByAPIKeyHash(hash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.Error(c, fiber.StatusUnauthorized, "unauthorized", "Invalid API key")
		}
		log.Errorf("[APIKey] Lookup failed: %v", err)
		return response.Error(c, fiber.StatusInternalServerError, "internal_server_error", "API key verification failed")
	}

	if user.Status != models.STATUS_ACTIVE {
		return response.Error(c, fiber.StatusForbidden, "forbidden", "User inactive")
	}

	orgID, err := requestedOrganization(c)
	if err != nil {
		return response.FromError(c, err)
	}
	uc, err := buildContext(user, orgID, usercontext.AuthAPIKey)
	if err != nil {
		if errors.Is(err, errNotMember) {
			return response.Error(c, fiber.StatusForbidden, "forbidden", err.Error())
		}
		return response.FromError(c, err)
	}

	// Refresh last-used timestamp best-effort.
	if err := db.Model(&models.UserSettings{}).
		Where("id = ?", settings.ID).
		Updates(map[string]any{"api_key_last_used_at": time.Now()}).Error; err != nil {
		log.Warnf("[APIKey] Failed to update usage timestamp for user %d: %v", user.ID, err)
	}

	usercontext.Set(c, uc)
	return c.Next()
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	if token := bearerToken(c); models.IsAPIKey(token) {
		return token
	}
	return ""
}

func bearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
