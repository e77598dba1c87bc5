package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/auth"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/session"
	"github.com/assettracer/assettracer/internal/pkg/testutil"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.NewDB(t)
	repository.SetGlobalFactory(repository.NewFactory(db))
	session.NewSessionStoreWithStorage(nil)
	return db
}

func newApp(verifier *auth.TokenVerifier, extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(UserContextMiddleware)
	handlers := append([]fiber.Handler{RequireAPIAuth(verifier)}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/api/v1/me", handlers...)
	return app
}

func issueKey(t *testing.T, db *gorm.DB, userID uint) string {
	t.Helper()
	settings, err := models.GetOrCreateUserSettings(db, userID)
	require.NoError(t, err)
	key, err := settings.IssueAPIKey(time.Now())
	require.NoError(t, err)
	require.NoError(t, db.Save(settings).Error)
	return key
}

func decode(t *testing.T, resp *http.Response) usercontext.UserContext {
	t.Helper()
	var uc usercontext.UserContext
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uc))
	return uc
}

func TestRequireAPIAuthRejectsAnonymous(t *testing.T) {
	setup(t)
	resp, err := newApp(nil).Test(httptest.NewRequest("GET", "/api/v1/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAPIKeyAuthentication(t *testing.T) {
	db := setup(t)
	org, user := testutil.SeedOrganization(t, db, "pro")
	key := issueKey(t, db, user.ID)
	app := newApp(nil)

	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("X-API-Key", key)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	uc := decode(t, resp)
	assert.Equal(t, user.ID, uc.UserID)
	assert.Equal(t, org.ID, uc.OrganizationID)
	assert.Equal(t, models.MemberRoleOwner, uc.Role)
	assert.Equal(t, usercontext.AuthAPIKey, uc.AuthMethod)

	// Bearer form works too.
	req = httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	settings, err := models.GetOrCreateUserSettings(db, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, settings.APIKeyLastUsedAt)

	req = httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("X-API-Key", key+"x")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOrganizationHeaderRequiresMembership(t *testing.T) {
	db := setup(t)
	_, user := testutil.SeedOrganization(t, db, "free")
	other, _ := testutil.SeedOrganization(t, db, "business")
	key := issueKey(t, db, user.ID)
	app := newApp(nil)

	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("X-API-Key", key)
	req.Header.Set(HeaderOrganizationID, fmt.Sprint(other.ID))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req.Header.Set(HeaderOrganizationID, "abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	require.NoError(t, db.Create(&models.OrganizationMember{OrganizationID: other.ID, UserID: user.ID, Role: models.MemberRoleMember}).Error)
	req.Header.Set(HeaderOrganizationID, fmt.Sprint(other.ID))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	uc := decode(t, resp)
	assert.Equal(t, other.ID, uc.OrganizationID)
	assert.Equal(t, models.MemberRoleMember, uc.Role)
}

func TestBearerTokenCreatesUserAndOrganization(t *testing.T) {
	db := setup(t)
	verifier := auth.NewTokenVerifier("test-secret", "authenticated")
	token, err := verifier.Sign(auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sb-user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:        "ada@example.com",
		UserMetadata: map[string]interface{}{"full_name": "Ada Lovelace"},
	})
	require.NoError(t, err)
	app := newApp(verifier)

	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	uc := decode(t, resp)
	assert.Equal(t, usercontext.AuthBearer, uc.AuthMethod)
	assert.Equal(t, "ada@example.com", uc.Email)
	assert.NotZero(t, uc.OrganizationID)
	assert.Equal(t, models.MemberRoleOwner, uc.Role)

	var org models.Organization
	require.NoError(t, db.First(&org, uc.OrganizationID).Error)
	assert.Equal(t, "free", org.Tier)

	// Second request reuses the same user and organization.
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, uc.OrganizationID, decode(t, resp).OrganizationID)

	req = httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionAuthentication(t *testing.T) {
	db := setup(t)
	org, user := testutil.SeedOrganization(t, db, "pro")
	app := newApp(nil)
	app.Post("/login", func(c *fiber.Ctx) error {
		return session.Login(c, user.ID, org.ID)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	uc := decode(t, resp)
	assert.Equal(t, usercontext.AuthSession, uc.AuthMethod)
	assert.Equal(t, org.ID, uc.OrganizationID)
}

func TestRequireFeatureReadsTierFromDatabase(t *testing.T) {
	db := setup(t)
	org, user := testutil.SeedOrganization(t, db, "free")
	key := issueKey(t, db, user.ID)
	app := newApp(nil, RequireFeature(entitlements.FeatureROITracking))

	call := func() *http.Response {
		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		req.Header.Set("X-API-Key", key)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := call()
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "feature_not_available", body["error"])
	assert.Equal(t, "pro", body["required_tier"])

	require.NoError(t, repository.GetGlobalFactory().GetOrganizationRepository().SetTier(org.ID, entitlements.TierPro))
	assert.Equal(t, fiber.StatusOK, call().StatusCode)

	require.NoError(t, repository.GetGlobalFactory().GetOrganizationRepository().SetTier(org.ID, entitlements.TierFree))
	assert.Equal(t, fiber.StatusForbidden, call().StatusCode)
}

func TestRequireRole(t *testing.T) {
	db := setup(t)
	org, _ := testutil.SeedOrganization(t, db, "business")
	member := &models.User{Name: "Member", Email: "member@example.com", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}
	require.NoError(t, db.Create(member).Error)
	require.NoError(t, db.Create(&models.OrganizationMember{OrganizationID: org.ID, UserID: member.ID, Role: models.MemberRoleMember}).Error)
	key := issueKey(t, db, member.ID)
	app := newApp(nil, RequireManager)

	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("X-API-Key", key)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAuthAnswersJSON(t *testing.T) {
	app := fiber.New()
	app.Post("/logout", RequireAuth, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("POST", "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
}
