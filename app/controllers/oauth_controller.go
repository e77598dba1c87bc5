package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/assettracer/assettracer/internal/pkg/auth"
	"github.com/assettracer/assettracer/internal/pkg/oauth"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/session"
)

const loginRedirect = "/"

// HandleOAuthBegin redirects to the provider consent page.
func HandleOAuthBegin(c *fiber.Ctx) error {
	if !oauth.Enabled(c.Params("provider")) {
		return response.Error(c, fiber.StatusNotFound, "not_found", "login provider not available")
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow, links or creates the user
// and its personal organization, and starts a session.
func HandleOAuthCallback(c *fiber.Ctx) error {
	if !oauth.Enabled(c.Params("provider")) {
		return response.Error(c, fiber.StatusNotFound, "not_found", "login provider not available")
	}
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("[OAuth] %s callback failed: %v", c.Params("provider"), err)
		return response.Error(c, fiber.StatusBadRequest, "oauth_failed", "login with provider failed")
	}

	identities := auth.NewIdentityServiceFromFactory()
	user, err := identities.Resolve(auth.ExternalIdentity{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          u.Email,
		Name:           firstNonEmpty(u.Name, u.NickName),
		AvatarURL:      u.AvatarURL,
		AccessToken:    u.AccessToken,
		RefreshToken:   u.RefreshToken,
		ExpiresAt:      u.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInactiveUser) {
			return response.Error(c, fiber.StatusForbidden, "account_disabled", err.Error())
		}
		return apiError(c, err)
	}
	orgID, err := identities.EnsureOrganization(user)
	if err != nil {
		return apiError(c, err)
	}

	if err := session.Login(c, user.ID, orgID); err != nil {
		return apiError(c, err)
	}
	if err := repos().User.RecordLogin(user.ID, now()); err != nil {
		log.Warnf("[OAuth] Failed to record login of user %d: %v", user.ID, err)
	}
	log.Infof("[OAuth] User %d logged in via %s", user.ID, u.Provider)

	return c.Redirect(loginRedirect, fiber.StatusSeeOther)
}

// HandleLogout ends the web session.
func HandleLogout(c *fiber.Ctx) error {
	if err := session.Logout(c); err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
