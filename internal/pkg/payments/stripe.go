package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/assettracer/assettracer/app/models"
)

// Stripe reads payment intents and issues refunds against them.
type Stripe struct {
	api *client.API
}

// NewStripe builds a provider on the default Stripe backends.
func NewStripe(secretKey string) *Stripe {
	return &Stripe{api: client.New(secretKey, nil)}
}

// NewStripeWithBackend targets a custom API URL (stripe-mock, tests).
func NewStripeWithBackend(secretKey, url string) *Stripe {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(url),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return &Stripe{api: client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})}
}

func (s *Stripe) Name() string { return ProviderStripe }

func (s *Stripe) Status(ctx context.Context, ref string) (StatusResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := s.api.PaymentIntents.Get(ref, params)
	if err != nil {
		return StatusResult{}, stripeError(err)
	}

	var refunded int64
	if pi.LatestCharge != nil {
		refunded = pi.LatestCharge.AmountRefunded
	}
	return StatusResult{
		Reference:      pi.ID,
		Status:         stripeIntentStatus(pi, refunded),
		Amount:         pi.Amount,
		RefundedAmount: refunded,
		Currency:       strings.ToUpper(string(pi.Currency)),
		Raw:            string(pi.Status),
	}, nil
}

func (s *Stripe) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if err := validateRefund(req); err != nil {
		return RefundResult{}, err
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.Reference),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx
	if req.Reason != "" {
		params.Reason = stripe.String(string(stripe.RefundReasonRequestedByCustomer))
		params.AddMetadata("reason", req.Reason)
	}

	r, err := s.api.Refunds.New(params)
	if err != nil {
		return RefundResult{}, stripeError(err)
	}
	return RefundResult{RefundID: r.ID, Amount: r.Amount, Status: string(r.Status)}, nil
}

func stripeIntentStatus(pi *stripe.PaymentIntent, refunded int64) string {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return refundedStatus(pi.Amount, refunded)
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentStatusCancelled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return models.PaymentStatusFailed
		}
	}
	return models.PaymentStatusPending
}

func stripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.Code == stripe.ErrorCodeResourceMissing {
			return ErrNotFound
		}
		return &ProviderError{Provider: ProviderStripe, Code: string(se.Code), Message: se.Msg}
	}
	return err
}
