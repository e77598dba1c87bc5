package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/auth"
	"github.com/assettracer/assettracer/internal/pkg/session"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

// HeaderOrganizationID lets API key and bearer clients pick one of their
// organizations per request.
const HeaderOrganizationID = "X-Organization-ID"

var errNotMember = errors.New("not a member of the requested organization")

// UserContextMiddleware sets up the user context from the web session for
// every request. Anonymous requests get an empty context.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth keeps its own session store on /auth/*.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}
	usercontext.Set(c, usercontext.UserContext{})

	userID, orgID := session.Identity(c)
	if userID == 0 {
		return c.Next()
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userID)
	if err != nil || !user.IsActive() {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[UserContext] Failed to load user %d: %v", userID, err)
		}
		_ = session.Logout(c)
		return c.Next()
	}

	uc, err := buildContext(user, orgID, usercontext.AuthSession)
	if err != nil {
		log.Warnf("[UserContext] User %d lost access to organization %d: %v", userID, orgID, err)
		uc, err = buildContext(user, 0, usercontext.AuthSession)
		if err != nil {
			log.Errorf("[UserContext] Failed to resolve organization for user %d: %v", userID, err)
			return c.Next()
		}
		if err := session.SetSessionValue(c, session.KeyOrganizationID, uc.OrganizationID); err != nil {
			log.Warnf("[UserContext] Failed to store organization in session: %v", err)
		}
	}
	usercontext.Set(c, uc)
	return c.Next()
}

// buildContext resolves the organization the request acts on. A zero
// requested id falls back to the user's active organization.
func buildContext(user *models.User, requestedOrgID uint, method string) (usercontext.UserContext, error) {
	f := repository.GetGlobalFactory()
	orgs := f.GetOrganizationRepository()

	orgID := requestedOrgID
	if orgID == 0 {
		id, err := auth.NewIdentityService(f.GetUserRepository(), orgs).EnsureOrganization(user)
		if err != nil {
			return usercontext.UserContext{}, err
		}
		orgID = id
	}

	member, err := orgs.GetMember(orgID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usercontext.UserContext{}, errNotMember
		}
		return usercontext.UserContext{}, err
	}

	return usercontext.UserContext{
		UserID:         user.ID,
		Username:       user.Name,
		Email:          user.Email,
		IsLoggedIn:     true,
		IsAdmin:        user.IsPlatformAdmin(),
		OrganizationID: orgID,
		Role:           member.Role,
		AuthMethod:     method,
	}, nil
}

// requestedOrganization parses the X-Organization-ID header, zero if absent.
func requestedOrganization(c *fiber.Ctx) (uint, error) {
	raw := strings.TrimSpace(c.Get(HeaderOrganizationID))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+HeaderOrganizationID+" header")
	}
	return uint(id), nil
}
