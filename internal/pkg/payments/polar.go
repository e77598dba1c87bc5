package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/assettracer/assettracer/app/models"
)

const polarDefaultURL = "https://api.polar.sh"

// Polar reads orders and creates refunds through the Polar REST API.
type Polar struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewPolar(token, baseURL string) *Polar {
	if baseURL == "" {
		baseURL = polarDefaultURL
	}
	return &Polar{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type polarOrder struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	TotalAmount    int64  `json:"total_amount"`
	RefundedAmount int64  `json:"refunded_amount"`
	Currency       string `json:"currency"`
}

type polarRefund struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

type polarError struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func (p *Polar) Name() string { return ProviderPolar }

func (p *Polar) Status(ctx context.Context, ref string) (StatusResult, error) {
	var order polarOrder
	if err := p.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(ref), nil, &order); err != nil {
		return StatusResult{}, err
	}
	return StatusResult{
		Reference:      order.ID,
		Status:         polarOrderStatus(order),
		Amount:         order.TotalAmount,
		RefundedAmount: order.RefundedAmount,
		Currency:       strings.ToUpper(order.Currency),
		Raw:            order.Status,
	}, nil
}

func (p *Polar) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if err := validateRefund(req); err != nil {
		return RefundResult{}, err
	}
	body := map[string]interface{}{
		"order_id": req.Reference,
		"amount":   req.Amount,
		"reason":   "customer_request",
	}
	if req.Reason != "" {
		body["comment"] = req.Reason
	}
	var refund polarRefund
	if err := p.do(ctx, http.MethodPost, "/v1/refunds/", body, &refund); err != nil {
		return RefundResult{}, err
	}
	return RefundResult{RefundID: refund.ID, Amount: refund.Amount, Status: refund.Status}, nil
}

func (p *Polar) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("polar request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		var pe polarError
		_ = json.Unmarshal(data, &pe)
		if pe.Detail == "" {
			pe.Detail = http.StatusText(resp.StatusCode)
		}
		return &ProviderError{Provider: ProviderPolar, Code: pe.Type, Message: pe.Detail}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode polar response: %w", err)
	}
	return nil
}

func polarOrderStatus(o polarOrder) string {
	switch strings.ToLower(o.Status) {
	case "paid":
		return refundedStatus(o.TotalAmount, o.RefundedAmount)
	case "refunded":
		return models.PaymentStatusRefunded
	case "partially_refunded":
		return models.PaymentStatusPartiallyRefunded
	case "failed":
		return models.PaymentStatusFailed
	case "canceled", "cancelled":
		return models.PaymentStatusCancelled
	}
	return models.PaymentStatusPending
}
