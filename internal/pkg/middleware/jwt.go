package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/auth"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

// BearerAuthMiddleware authenticates Supabase access tokens. The subject is
// linked to a local user on first use.
func BearerAuthMiddleware(verifier *auth.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return response.Error(c, fiber.StatusUnauthorized, "unauthorized", "Missing bearer token")
		}
		return authenticateBearer(c, verifier, token)
	}
}

func authenticateBearer(c *fiber.Ctx, verifier *auth.TokenVerifier, token string) error {
	claims, err := verifier.Verify(token)
	if err != nil {
		log.Debugf("[Bearer] Rejected token: %v", err)
		return response.Error(c, fiber.StatusUnauthorized, "unauthorized", "Invalid bearer token")
	}

	f := repository.GetGlobalFactory()
	identities := auth.NewIdentityService(f.GetUserRepository(), f.GetOrganizationRepository())
	user, err := identities.Resolve(auth.ExternalIdentity{
		Provider:       auth.ProviderSupabase,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		Name:           claims.Name(),
	})
	if err != nil {
		if errors.Is(err, auth.ErrInactiveUser) {
			return response.Error(c, fiber.StatusForbidden, "forbidden", "User inactive")
		}
		return response.FromError(c, err)
	}

	orgID, err := requestedOrganization(c)
	if err != nil {
		return response.FromError(c, err)
	}
	uc, err := buildContext(user, orgID, usercontext.AuthBearer)
	if err != nil {
		if errors.Is(err, errNotMember) {
			return response.Error(c, fiber.StatusForbidden, "forbidden", err.Error())
		}
		return response.FromError(c, err)
	}
	usercontext.Set(c, uc)
	return c.Next()
}
