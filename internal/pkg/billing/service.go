package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79/client"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/database"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/env"
)

var (
	ErrWebhookNotConfigured = errors.New("billing: webhook secret not configured")
	ErrInvalidSignature     = errors.New("billing: invalid webhook signature")
	ErrCheckoutUnavailable  = errors.New("billing: checkout not configured")
	ErrInvalidPayload       = errors.New("billing: invalid webhook payload")
)

// Service provides provider-neutral billing synchronization and reconciliation.
type Service struct {
	repo                Repository
	stripeWebhookSecret string
	polarWebhookSecret  string
	stripe              *client.API
	now                 func() time.Time
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// NewServiceFromEnv wires the shared database and the provider secrets.
func NewServiceFromEnv() *Service {
	s := NewServiceFromDB(database.GetDB())
	s.stripeWebhookSecret = env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	s.polarWebhookSecret = env.GetEnv("POLAR_WEBHOOK_SECRET", "")
	if key := env.GetEnv("STRIPE_SECRET_KEY", ""); key != "" {
		s.stripe = client.New(key, nil)
	}
	return s
}

// WithSecrets sets the webhook signing secrets.
func (s *Service) WithSecrets(stripeSecret, polarSecret string) *Service {
	s.stripeWebhookSecret = stripeSecret
	s.polarWebhookSecret = polarSecret
	return s
}

// WithStripeClient sets the API client used for checkout sessions.
func (s *Service) WithStripeClient(c *client.API) *Service {
	s.stripe = c
	return s
}

// LinkCustomer creates or updates the provider customer of an organization.
func (s *Service) LinkCustomer(ctx context.Context, orgID uint, provider, customerID, email string) (*models.BillingAccount, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	cID := strings.TrimSpace(customerID)
	if orgID == 0 || p == "" || cID == "" {
		return nil, errors.New("organization_id, provider and provider_customer_id are required")
	}

	account := &models.BillingAccount{
		OrganizationID:     orgID,
		Provider:           p,
		ProviderCustomerID: cID,
		Email:              strings.TrimSpace(email),
	}
	if err := s.repo.WithContext(ctx).UpsertBillingAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// organizationForCustomer resolves a provider customer to its organization,
// 0 when the customer was never linked.
func (s *Service) organizationForCustomer(ctx context.Context, provider, customerID string) (uint, error) {
	if strings.TrimSpace(customerID) == "" {
		return 0, nil
	}
	account, err := s.repo.WithContext(ctx).GetBillingAccountByCustomerID(provider, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.OrganizationID, nil
}

// ResolveMappedTier resolves a provider plan reference to a tier. Lookup
// order: mapping with the exact interval, mapping with interval "unknown",
// environment price lists, the hint from provider metadata, free.
func (s *Service) ResolveMappedTier(ctx context.Context, provider, providerPlanRef, interval, hint string) (entitlements.Tier, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	ref := strings.TrimSpace(providerPlanRef)
	i := normalizeInterval(interval)

	if ref != "" {
		for _, candidate := range []string{i, models.BillingIntervalUnknown} {
			m, err := s.repo.WithContext(ctx).FindActivePlanMapping(p, ref, candidate)
			if err == nil {
				return normalizeTier(m.Tier), nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return entitlements.TierFree, err
			}
			if candidate == models.BillingIntervalUnknown {
				break
			}
		}
		if tier, ok := envPlanTier(p, ref); ok {
			return tier, nil
		}
	}
	return normalizeTier(hint), nil
}

// SyncSubscription upserts provider subscription data and reconciles the
// organization tier.
func (s *Service) SyncSubscription(ctx context.Context, in NormalizedSubscription) (*models.BillingSubscription, entitlements.Tier, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if in.OrganizationID == 0 || provider == "" || strings.TrimSpace(in.ProviderSubscriptionID) == "" {
		return nil, "", errors.New("organization_id, provider and provider_subscription_id are required")
	}

	interval := normalizeInterval(in.BillingInterval)
	tier, err := s.ResolveMappedTier(ctx, provider, in.ProviderPlanRef, interval, in.TierHint)
	if err != nil {
		return nil, "", err
	}

	sub := &models.BillingSubscription{
		OrganizationID:         in.OrganizationID,
		Provider:               provider,
		ProviderSubscriptionID: strings.TrimSpace(in.ProviderSubscriptionID),
		ProviderPlanRef:        strings.TrimSpace(in.ProviderPlanRef),
		Tier:                   string(tier),
		BillingInterval:        interval,
		Status:                 normalizeStatus(in.Status),
		CurrentPeriodStart:     in.CurrentPeriodStart,
		CurrentPeriodEnd:       in.CurrentPeriodEnd,
		CancelAtPeriodEnd:      in.CancelAtPeriodEnd,
		RawPayloadJSON:         in.RawPayloadJSON,
	}
	if err := s.repo.WithContext(ctx).UpsertSubscription(sub); err != nil {
		return nil, "", err
	}

	if linked, _ := s.organizationForCustomer(ctx, provider, in.ProviderCustomerID); linked == 0 && in.ProviderCustomerID != "" {
		if _, err := s.LinkCustomer(ctx, in.OrganizationID, provider, in.ProviderCustomerID, ""); err != nil {
			log.Warnf("[Billing] Failed to link customer %s for org %d: %v", in.ProviderCustomerID, in.OrganizationID, err)
		}
	}

	effective, err := s.ReconcileOrganizationTier(ctx, in.OrganizationID)
	if err != nil {
		return sub, "", err
	}
	return sub, effective, nil
}

// ReconcileOrganizationTier writes the best tier among entitling
// subscriptions, or free when none entitles.
func (s *Service) ReconcileOrganizationTier(ctx context.Context, orgID uint) (entitlements.Tier, error) {
	if orgID == 0 {
		return "", errors.New("organization_id is required")
	}

	subs, err := s.repo.WithContext(ctx).ListSubscriptionsByOrganization(orgID)
	if err != nil {
		return "", err
	}

	best := entitlements.TierFree
	for _, sub := range subs {
		if !sub.IsEntitling() {
			continue
		}
		if candidate := normalizeTier(sub.Tier); candidate.Rank() > best.Rank() {
			best = candidate
		}
	}

	org, err := s.repo.WithContext(ctx).GetOrganization(orgID)
	if err != nil {
		return "", err
	}
	if org.Tier == string(best) {
		return best, nil
	}
	if err := s.repo.WithContext(ctx).SetOrganizationTier(orgID, best); err != nil {
		return "", err
	}
	log.Infof("[Billing] Organization %d tier changed %s -> %s", orgID, org.Tier, best)
	return best, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.WithContext(ctx).CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed stores the outcome of an event and the processing
// error, if any.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, outcome Outcome, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.WithContext(ctx).MarkWebhookProcessed(webhookEventID, string(outcome), errMsg)
}

// record stores the event and reports whether it still needs processing.
// Events that were stored but failed earlier are processed again.
func (s *Service) record(ctx context.Context, in WebhookEventInput) (*models.BillingWebhookEvent, bool, error) {
	created, event, err := s.RecordWebhookEvent(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if !created && event.Succeeded() {
		return event, false, nil
	}
	return event, true, nil
}

// finish marks the event and maps the handler result to an outcome.
func (s *Service) finish(ctx context.Context, provider string, event *models.BillingWebhookEvent, handled bool, handleErr error) (Outcome, error) {
	outcome := OutcomeProcessed
	switch {
	case handleErr != nil:
		outcome = OutcomeFailed
		log.Errorf("[Billing] %s event %s (%s) failed: %v", provider, event.ProviderEventID, event.EventType, handleErr)
	case !handled:
		outcome = OutcomeIgnored
	}
	if err := s.MarkWebhookProcessed(ctx, event.ID, outcome, handleErr); err != nil {
		log.Errorf("[Billing] Failed to mark %s event %s processed: %v", provider, event.ProviderEventID, err)
	}
	return outcome, handleErr
}
