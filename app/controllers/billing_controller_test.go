package controllers

import (
	"bytes"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettracer/assettracer/internal/pkg/billing"
)

func useBillingSecrets(t *testing.T, env *testEnv, stripeSecret, polarSecret string) {
	t.Helper()
	previous := billingService
	billingService = func() *billing.Service {
		return billing.NewServiceFromDB(env.db).WithSecrets(stripeSecret, polarSecret)
	}
	t.Cleanup(func() { billingService = previous })
}

func postWebhook(t *testing.T, app *fiber.App, path string, payload []byte, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestStripeWebhookNeedsSecretAndSignature(t *testing.T) {
	env := newTestEnv(t, "free")
	env.app.Post("/billing/webhooks/stripe", HandleStripeWebhook)
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)

	useBillingSecrets(t, env, "", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, postWebhook(t, env.app, "/billing/webhooks/stripe", payload, nil))

	useBillingSecrets(t, env, "whsec_test", "")
	assert.Equal(t, fiber.StatusBadRequest, postWebhook(t, env.app, "/billing/webhooks/stripe", payload,
		map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"}))
}

func TestPolarWebhookRejectsBadDeliveries(t *testing.T) {
	env := newTestEnv(t, "free")
	env.app.Post("/billing/webhooks/polar", HandlePolarWebhook)
	useBillingSecrets(t, env, "", "polar_secret")

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	garbage := []byte("not json")
	headers := map[string]string{
		"webhook-id":        "msg_1",
		"webhook-timestamp": ts,
		"webhook-signature": billing.SignPolarWebhook(garbage, "msg_1", ts, "polar_secret"),
	}
	assert.Equal(t, fiber.StatusBadRequest, postWebhook(t, env.app, "/billing/webhooks/polar", garbage, headers))

	headers["webhook-signature"] = billing.SignPolarWebhook(garbage, "msg_1", ts, "other_secret")
	assert.Equal(t, fiber.StatusBadRequest, postWebhook(t, env.app, "/billing/webhooks/polar", garbage, headers))
}
