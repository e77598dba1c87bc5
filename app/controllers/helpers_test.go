package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/middleware"
	"github.com/assettracer/assettracer/internal/pkg/testutil"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

type testEnv struct {
	app  *fiber.App
	db   *gorm.DB
	org  *models.Organization
	user *models.User
}

// newTestEnv builds an app whose requests act as the owner of a fresh
// organization on tier.
func newTestEnv(t *testing.T, tier string) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.NewRedis(t)
	repository.SetGlobalFactory(repository.NewFactory(db))
	org, user := testutil.SeedOrganization(t, db, tier)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		usercontext.Set(c, usercontext.UserContext{
			UserID:         user.ID,
			Username:       user.Name,
			Email:          user.Email,
			IsLoggedIn:     true,
			OrganizationID: org.ID,
			Role:           models.MemberRoleOwner,
			AuthMethod:     usercontext.AuthSession,
		})
		return c.Next()
	}, middleware.LoadTier)

	return &testEnv{app: app, db: db, org: org, user: user}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	out := map[string]interface{}{}
	if resp.StatusCode != fiber.StatusNoContent && isJSON(resp) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func isJSON(resp *http.Response) bool {
	return bytes.HasPrefix([]byte(resp.Header.Get(fiber.HeaderContentType)), []byte(fiber.MIMEApplicationJSON))
}

func (e *testEnv) seedClient(t *testing.T, email string) *models.Client {
	t.Helper()
	client := &models.Client{OrganizationID: e.org.ID, Name: "Globex", Email: email}
	require.NoError(t, e.db.Create(client).Error)
	return client
}

func (e *testEnv) seedAsset(t *testing.T, name string) *models.Asset {
	t.Helper()
	asset := &models.Asset{OrganizationID: e.org.ID, Name: name, Status: models.AssetStatusAvailable, DailyRate: 2500}
	require.NoError(t, e.db.Create(asset).Error)
	return asset
}

func documentBody(clientID uint, status string) fiber.Map {
	return fiber.Map{
		"client_id": clientID,
		"status":    status,
		"tax_rate":  1900,
		"items": []fiber.Map{
			{"description": "Camera rental", "quantity": 2, "unit_price": 5000},
		},
	}
}
