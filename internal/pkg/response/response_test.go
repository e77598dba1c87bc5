package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

func run(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return FromError(c, err) })
	resp, rerr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, rerr)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestQuotaExceededIs402(t *testing.T) {
	res, err := entitlements.CheckQuota("free", entitlements.ResourceAssets, 20)
	require.NoError(t, err)

	status, body := run(t, fmt.Errorf("create asset: %w", res.Err()))
	assert.Equal(t, fiber.StatusPaymentRequired, status)
	assert.Equal(t, "quota_exceeded", body["error"])
	assert.Equal(t, "maxAssets", body["resource"])
	assert.Equal(t, float64(20), body["limit"])
	assert.Equal(t, float64(20), body["usage"])
	assert.Equal(t, "pro", body["required_tier"])
}

func TestFeatureNotAvailableIs403(t *testing.T) {
	status, body := run(t, entitlements.RequireFeatureOrReject("free", entitlements.FeatureROITracking))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "feature_not_available", body["error"])
	assert.Equal(t, "hasROITracking", body["feature"])
	assert.Equal(t, "free", body["tier"])
	assert.Equal(t, "pro", body["required_tier"])
}

func TestInvalidArgumentIs400(t *testing.T) {
	_, err := entitlements.CheckQuota("pro", entitlements.ResourceAssets, -1)
	status, body := run(t, err)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_argument", body["error"])
}

func TestOtherErrors(t *testing.T) {
	status, body := run(t, gorm.ErrRecordNotFound)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])

	status, _ = run(t, errors.New("boom"))
	assert.Equal(t, fiber.StatusInternalServerError, status)

	type payload struct {
		Name string `validate:"required"`
	}
	status, body = run(t, Validate(&payload{}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, map[string]interface{}{"name": "required"}, body["fields"])

	status, body = run(t, fiber.NewError(fiber.StatusConflict, "already exists"))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "conflict", body["error"])
}

func TestErrorHandlerAnswersUnknownRoutesAsJSON(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_found", body["error"])
}
