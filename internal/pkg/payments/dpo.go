package payments

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/assettracer/assettracer/app/models"
)

const dpoDefaultURL = "https://secure.3gdirectpay.com/API/v6/"

// DPO result codes used by verifyToken and refundToken.
const (
	dpoPaid           = "000"
	dpoAuthorized     = "001"
	dpoNotPaidYet     = "900"
	dpoDeclined       = "901"
	dpoDataMismatch   = "902"
	dpoExpired        = "903"
	dpoCancelled      = "904"
	dpoTokenNotFound  = "950"
	dpoRefundAccepted = "000"
)

// DPO talks to the DPO Pay XML API. References are transaction tokens.
type DPO struct {
	companyToken string
	url          string
	client       *http.Client
}

func NewDPO(companyToken, url string) *DPO {
	if url == "" {
		url = dpoDefaultURL
	}
	return &DPO{
		companyToken: companyToken,
		url:          url,
		client:       &http.Client{Timeout: 20 * time.Second},
	}
}

type dpoRequest struct {
	XMLName          xml.Name `xml:"API3G"`
	CompanyToken     string   `xml:"CompanyToken"`
	Request          string   `xml:"Request"`
	TransactionToken string   `xml:"TransactionToken"`
	RefundAmount     string   `xml:"refundAmount,omitempty"`
	RefundDetails    string   `xml:"refundDetails,omitempty"`
}

type dpoResponse struct {
	XMLName             xml.Name `xml:"API3G"`
	Result              string   `xml:"Result"`
	ResultExplanation   string   `xml:"ResultExplanation"`
	TransactionAmount   string   `xml:"TransactionAmount"`
	TransactionCurrency string   `xml:"TransactionCurrency"`
	TransactionRefunded string   `xml:"TransactionRefunded"`
	RefundedAmount      string   `xml:"TransactionRefundedAmount"`
}

func (d *DPO) Name() string { return ProviderDPO }

func (d *DPO) Status(ctx context.Context, ref string) (StatusResult, error) {
	resp, err := d.call(ctx, dpoRequest{Request: "verifyToken", TransactionToken: ref})
	if err != nil {
		return StatusResult{}, err
	}
	if resp.Result == dpoTokenNotFound {
		return StatusResult{}, ErrNotFound
	}

	amount, err := parseMinorUnits(resp.TransactionAmount)
	if err != nil {
		return StatusResult{}, err
	}
	refunded, err := parseMinorUnits(resp.RefundedAmount)
	if err != nil {
		return StatusResult{}, err
	}

	status := models.PaymentStatusPending
	switch resp.Result {
	case dpoPaid, dpoAuthorized:
		status = refundedStatus(amount, refunded)
		if strings.EqualFold(resp.TransactionRefunded, "1") && refunded == 0 {
			status = models.PaymentStatusRefunded
		}
	case dpoDeclined, dpoDataMismatch:
		status = models.PaymentStatusFailed
	case dpoCancelled, dpoExpired:
		status = models.PaymentStatusCancelled
	case dpoNotPaidYet:
		status = models.PaymentStatusPending
	}

	return StatusResult{
		Reference:      ref,
		Status:         status,
		Amount:         amount,
		RefundedAmount: refunded,
		Currency:       strings.ToUpper(resp.TransactionCurrency),
		Raw:            resp.Result,
	}, nil
}

func (d *DPO) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if err := validateRefund(req); err != nil {
		return RefundResult{}, err
	}
	details := req.Reason
	if details == "" {
		details = "Refund"
	}
	resp, err := d.call(ctx, dpoRequest{
		Request:          "refundToken",
		TransactionToken: req.Reference,
		RefundAmount:     formatMinorUnits(req.Amount),
		RefundDetails:    details,
	})
	if err != nil {
		return RefundResult{}, err
	}
	if resp.Result != dpoRefundAccepted {
		return RefundResult{}, &ProviderError{Provider: ProviderDPO, Code: resp.Result, Message: resp.ResultExplanation}
	}
	return RefundResult{RefundID: req.Reference, Amount: req.Amount, Status: "succeeded"}, nil
}

func (d *DPO) call(ctx context.Context, r dpoRequest) (*dpoResponse, error) {
	r.CompanyToken = d.companyToken
	payload, err := xml.Marshal(r)
	if err != nil {
		return nil, err
	}
	body := append([]byte(xml.Header), payload...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dpo request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &ProviderError{Provider: ProviderDPO, Message: http.StatusText(resp.StatusCode)}
	}
	var out dpoResponse
	if err := xml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode dpo response: %w", err)
	}
	return &out, nil
}

// parseMinorUnits turns DPO's decimal amounts ("150.50") into cents.
func parseMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid dpo amount %q: %w", s, err)
	}
	return int64(math.Round(f * 100)), nil
}

func formatMinorUnits(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
