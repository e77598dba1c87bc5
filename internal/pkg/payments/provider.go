package payments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/assettracer/assettracer/app/models"
)

const (
	ProviderStripe = "stripe"
	ProviderPolar  = "polar"
	ProviderDPO    = "dpo"
)

var (
	ErrUnknownProvider = errors.New("unknown payment provider")
	ErrNotFound        = errors.New("payment not found at provider")
	ErrInvalidAmount   = errors.New("refund amount must be positive")
)

// StatusResult is a provider payment normalized to the payment statuses in
// app/models.
type StatusResult struct {
	Reference      string `json:"reference"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	RefundedAmount int64  `json:"refunded_amount"`
	Currency       string `json:"currency"`
	Raw            string `json:"raw_status"`
}

// RefundRequest asks a provider to return Amount (minor units) of the payment
// identified by Reference. Amount must be positive.
type RefundRequest struct {
	Reference string
	Amount    int64
	Currency  string
	Reason    string
}

// RefundResult is the provider's answer to a refund.
type RefundResult struct {
	RefundID string `json:"refund_id"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
}

// Provider is the contract every payment integration satisfies.
type Provider interface {
	Name() string
	Status(ctx context.Context, ref string) (StatusResult, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
}

// ProviderError wraps a failure reported by the remote API.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

// Registry maps provider names to configured providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(p.Name())] = p
}

// Get returns the provider or ErrUnknownProvider.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists the registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// refundedStatus derives paid/partially_refunded/refunded from amounts.
func refundedStatus(amount, refunded int64) string {
	switch {
	case refunded <= 0:
		return models.PaymentStatusPaid
	case refunded >= amount:
		return models.PaymentStatusRefunded
	default:
		return models.PaymentStatusPartiallyRefunded
	}
}

func validateRefund(req RefundRequest) error {
	if strings.TrimSpace(req.Reference) == "" {
		return errors.New("refund reference is required")
	}
	if req.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
