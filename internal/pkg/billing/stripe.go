package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/metrics"
)

// metadataOrganizationID is the metadata key carrying our organization id on
// checkout sessions and subscriptions.
const metadataOrganizationID = "organization_id"

// HandleStripeWebhook verifies and applies a Stripe webhook delivery.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, sigHeader string) (Outcome, error) {
	outcome, err := s.handleStripeWebhook(ctx, payload, sigHeader)
	metrics.ObserveWebhook(models.BillingProviderStripe, string(outcome))
	return outcome, err
}

func (s *Service) handleStripeWebhook(ctx context.Context, payload []byte, sigHeader string) (Outcome, error) {
	if strings.TrimSpace(s.stripeWebhookSecret) == "" {
		return OutcomeFailed, ErrWebhookNotConfigured
	}
	evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.stripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event, pending, err := s.record(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: evt.ID,
		EventType:       string(evt.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		return OutcomeFailed, err
	}
	if !pending {
		log.Infof("[Billing] Stripe event %s duplicate ignored", evt.ID)
		return OutcomeDuplicate, nil
	}

	handled, handleErr := s.applyStripeEvent(ctx, evt)
	return s.finish(ctx, models.BillingProviderStripe, event, handled, handleErr)
}

func (s *Service) applyStripeEvent(ctx context.Context, evt stripe.Event) (bool, error) {
	switch evt.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			return false, fmt.Errorf("invalid checkout session payload: %w", err)
		}
		orgID := parseOrganizationID(session.Metadata[metadataOrganizationID])
		if orgID == 0 {
			orgID = parseOrganizationID(session.ClientReferenceID)
		}
		if orgID == 0 || session.Customer == nil {
			log.Warnf("[Billing] Stripe checkout %s without organization or customer", session.ID)
			return false, nil
		}
		email := ""
		if session.CustomerDetails != nil {
			email = session.CustomerDetails.Email
		}
		_, err := s.LinkCustomer(ctx, orgID, models.BillingProviderStripe, session.Customer.ID, email)
		return err == nil, err

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return false, fmt.Errorf("invalid subscription payload: %w", err)
		}
		in, err := s.normalizeStripeSubscription(ctx, &sub, evt.Data.Raw)
		if err != nil {
			return false, err
		}
		if in.OrganizationID == 0 {
			log.Warnf("[Billing] Stripe subscription %s has no known organization", sub.ID)
			return false, nil
		}
		if evt.Type == "customer.subscription.deleted" {
			in.Status = models.BillingStatusCanceled
		}
		_, _, err = s.SyncSubscription(ctx, in)
		return err == nil, err
	}
	return false, nil
}

func (s *Service) normalizeStripeSubscription(ctx context.Context, sub *stripe.Subscription, raw []byte) (NormalizedSubscription, error) {
	in := NormalizedSubscription{
		Provider:               models.BillingProviderStripe,
		ProviderSubscriptionID: sub.ID,
		Status:                 string(sub.Status),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		TierHint:               sub.Metadata["tier"],
		RawPayloadJSON:         string(raw),
		CurrentPeriodStart:     unixPtr(sub.CurrentPeriodStart),
		CurrentPeriodEnd:       unixPtr(sub.CurrentPeriodEnd),
	}
	if sub.Customer != nil {
		in.ProviderCustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		in.ProviderPlanRef = price.ID
		if price.Recurring != nil {
			in.BillingInterval = string(price.Recurring.Interval)
		}
	}

	in.OrganizationID = parseOrganizationID(sub.Metadata[metadataOrganizationID])
	if in.OrganizationID == 0 {
		orgID, err := s.organizationForCustomer(ctx, models.BillingProviderStripe, in.ProviderCustomerID)
		if err != nil {
			return in, err
		}
		in.OrganizationID = orgID
	}
	return in, nil
}

// CreateCheckout opens a Stripe Checkout session that upgrades org to tier.
// It returns the hosted checkout URL.
func (s *Service) CreateCheckout(ctx context.Context, org *models.Organization, tier entitlements.Tier, successURL, cancelURL string) (string, error) {
	if s.stripe == nil {
		return "", ErrCheckoutUnavailable
	}
	if tier.Rank() <= entitlements.TierFree.Rank() {
		return "", fmt.Errorf("tier %q cannot be purchased", tier)
	}
	priceID := priceForTier(tier)
	if priceID == "" {
		return "", fmt.Errorf("%w: no price for tier %s", ErrCheckoutUnavailable, tier)
	}

	orgRef := strconv.FormatUint(uint64(org.ID), 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(orgRef),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metadataOrganizationID: orgRef,
				"tier":                 string(tier),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataOrganizationID, orgRef)
	params.AddMetadata("tier", string(tier))

	if account, err := s.repo.WithContext(ctx).GetBillingAccount(org.ID, models.BillingProviderStripe); err == nil {
		params.Customer = stripe.String(account.ProviderCustomerID)
	}

	session, err := s.stripe.CheckoutSessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return "", fmt.Errorf("stripe checkout: %s", stripeErr.Msg)
		}
		return "", err
	}
	return session.URL, nil
}

func parseOrganizationID(raw string) uint {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
