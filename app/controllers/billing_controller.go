package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/internal/pkg/billing"
	"github.com/assettracer/assettracer/internal/pkg/database"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/env"
	"github.com/assettracer/assettracer/internal/pkg/response"
)

// billingService builds the service per request so secrets and the database
// handle are read after startup. Tests replace it.
var billingService = billing.NewServiceFromEnv

type checkoutRequest struct {
	Tier string `json:"tier" validate:"required,oneof=pro business"`
}

// webhookResult answers a provider delivery. Signature and payload problems
// get 400 so the provider stops retrying; a missing secret is 503 and
// processing failures are 500 so the delivery is retried.
func webhookResult(c *fiber.Ctx, provider string, outcome billing.Outcome, err error) error {
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"ok": true, "outcome": outcome})
	case errors.Is(err, billing.ErrWebhookNotConfigured):
		log.Warnf("[Billing] %s webhook received but no secret is configured", provider)
		return response.Error(c, fiber.StatusServiceUnavailable, "webhook_not_configured", err.Error())
	case errors.Is(err, billing.ErrInvalidSignature):
		log.Warnf("[Billing] %s webhook with invalid signature from %s", provider, ClientIP(c))
		return response.Error(c, fiber.StatusBadRequest, "invalid_signature", "invalid webhook signature")
	case errors.Is(err, billing.ErrInvalidPayload):
		return response.Error(c, fiber.StatusBadRequest, "invalid_payload", err.Error())
	}
	log.Errorf("[Billing] %s webhook failed: %v", provider, err)
	return response.Error(c, fiber.StatusInternalServerError, "webhook_failed", "webhook processing failed")
}

// HandleStripeWebhook receives Stripe subscription and checkout events.
func HandleStripeWebhook(c *fiber.Ctx) error {
	outcome, err := billingService().HandleStripeWebhook(c.UserContext(), c.Body(), c.Get("Stripe-Signature"))
	return webhookResult(c, "stripe", outcome, err)
}

// HandlePolarWebhook receives Polar subscription events signed per the
// Standard Webhooks scheme.
func HandlePolarWebhook(c *fiber.Ctx) error {
	outcome, err := billingService().HandlePolarWebhook(c.UserContext(), c.Body(), billing.PolarHeaders{
		ID:        c.Get("webhook-id"),
		Timestamp: c.Get("webhook-timestamp"),
		Signature: c.Get("webhook-signature"),
	})
	return webhookResult(c, "polar", outcome, err)
}

// HandleCreateCheckout starts a Stripe Checkout upgrade for the organization.
func HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	org, err := repos().Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	url, err := billingService().CreateCheckout(c.UserContext(), org, entitlements.Tier(req.Tier),
		env.PublicURL("/billing/success"), env.PublicURL("/billing/cancel"))
	if err != nil {
		if errors.Is(err, billing.ErrCheckoutUnavailable) {
			return response.Error(c, fiber.StatusServiceUnavailable, "checkout_unavailable", err.Error())
		}
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleListSubscriptions shows the provider subscriptions behind the
// organization tier.
func HandleListSubscriptions(c *fiber.Ctx) error {
	subs, err := billing.NewRepository(database.GetDB()).ListSubscriptionsByOrganization(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	tier, err := repos().Organization.GetTier(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"tier": tier, "subscriptions": subs})
}
