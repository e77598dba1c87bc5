package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/metrics"
)

// PolarHeaders carries the Standard Webhooks headers of a delivery.
type PolarHeaders struct {
	ID        string
	Timestamp string
	Signature string
}

type polarEvent struct {
	Type string            `json:"type"`
	Data polarSubscription `json:"data"`
}

type polarSubscription struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	ProductID          string            `json:"product_id"`
	CustomerID         string            `json:"customer_id"`
	RecurringInterval  string            `json:"recurring_interval"`
	CurrentPeriodStart *time.Time        `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time        `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Customer           *struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// HandlePolarWebhook verifies and applies a Polar webhook delivery.
func (s *Service) HandlePolarWebhook(ctx context.Context, payload []byte, h PolarHeaders) (Outcome, error) {
	outcome, err := s.handlePolarWebhook(ctx, payload, h)
	metrics.ObserveWebhook(models.BillingProviderPolar, string(outcome))
	return outcome, err
}

func (s *Service) handlePolarWebhook(ctx context.Context, payload []byte, h PolarHeaders) (Outcome, error) {
	if strings.TrimSpace(s.polarWebhookSecret) == "" {
		return OutcomeFailed, ErrWebhookNotConfigured
	}
	if !VerifyPolarWebhookSignature(payload, h.ID, h.Timestamp, h.Signature, s.polarWebhookSecret, s.now()) {
		return OutcomeFailed, ErrInvalidSignature
	}

	var evt polarEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	event, pending, err := s.record(ctx, WebhookEventInput{
		Provider:        models.BillingProviderPolar,
		ProviderEventID: h.ID,
		EventType:       evt.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		return OutcomeFailed, err
	}
	if !pending {
		log.Infof("[Billing] Polar event %s duplicate ignored", h.ID)
		return OutcomeDuplicate, nil
	}

	handled, handleErr := s.applyPolarEvent(ctx, evt, payload)
	return s.finish(ctx, models.BillingProviderPolar, event, handled, handleErr)
}

func (s *Service) applyPolarEvent(ctx context.Context, evt polarEvent, raw []byte) (bool, error) {
	if !strings.HasPrefix(evt.Type, "subscription.") {
		return false, nil
	}
	sub := evt.Data
	if sub.ID == "" {
		return false, fmt.Errorf("polar %s without subscription id", evt.Type)
	}

	in := NormalizedSubscription{
		Provider:               models.BillingProviderPolar,
		ProviderSubscriptionID: sub.ID,
		ProviderCustomerID:     sub.CustomerID,
		ProviderPlanRef:        sub.ProductID,
		TierHint:               sub.Metadata["tier"],
		BillingInterval:        sub.RecurringInterval,
		Status:                 sub.Status,
		CurrentPeriodStart:     sub.CurrentPeriodStart,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		RawPayloadJSON:         string(raw),
		OrganizationID:         parseOrganizationID(sub.Metadata[metadataOrganizationID]),
	}
	if evt.Type == "subscription.revoked" {
		in.Status = models.BillingStatusCanceled
	}
	if in.OrganizationID == 0 {
		orgID, err := s.organizationForCustomer(ctx, models.BillingProviderPolar, sub.CustomerID)
		if err != nil {
			return false, err
		}
		in.OrganizationID = orgID
	}
	if in.OrganizationID == 0 {
		log.Warnf("[Billing] Polar subscription %s has no known organization", sub.ID)
		return false, nil
	}

	_, _, err := s.SyncSubscription(ctx, in)
	if err == nil && sub.Customer != nil && sub.Customer.Email != "" && sub.CustomerID != "" {
		if _, linkErr := s.LinkCustomer(ctx, in.OrganizationID, models.BillingProviderPolar, sub.CustomerID, sub.Customer.Email); linkErr != nil {
			log.Warnf("[Billing] Failed to store polar customer email for org %d: %v", in.OrganizationID, linkErr)
		}
	}
	return err == nil, err
}
