package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/payments"
	"github.com/assettracer/assettracer/internal/pkg/reporting"
	"github.com/assettracer/assettracer/internal/pkg/response"
)

type createPaymentRequest struct {
	Provider    string `json:"provider" validate:"required"`
	ProviderRef string `json:"provider_ref" validate:"required,max=191"`
	Amount      int64  `json:"amount" validate:"gte=0"`
	CheckoutURL string `json:"checkout_url" validate:"omitempty,url,max=500"`
}

type refundRequest struct {
	Amount int64  `json:"amount" validate:"gte=0"`
	Reason string `json:"reason" validate:"max=255"`
}

// paymentError maps provider failures before the generic mapping.
func paymentError(c *fiber.Ctx, err error) error {
	var pe *payments.ProviderError
	switch {
	case errors.Is(err, payments.ErrUnknownProvider):
		return response.Error(c, fiber.StatusBadRequest, "unknown_provider", err.Error())
	case errors.Is(err, payments.ErrInvalidAmount):
		return response.Error(c, fiber.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, payments.ErrNotFound):
		return response.Error(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &pe):
		log.Warnf("[Payments] Provider %s failed: %v", pe.Provider, err)
		return response.Error(c, fiber.StatusBadGateway, "provider_error", pe.Error())
	}
	return apiError(c, err)
}

// HandleCreateInvoicePayment attaches a provider payment to an invoice and
// syncs its status right away. A failed sync leaves the payment pending.
func HandleCreateInvoicePayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	var req createPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	provider, err := payments.Default().Get(req.Provider)
	if err != nil {
		return paymentError(c, err)
	}

	r := repos()
	inv, err := r.Invoice.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	if inv.Status == models.InvoiceStatusDraft || inv.Status == models.InvoiceStatusCancelled {
		return response.Error(c, fiber.StatusConflict, "invalid_state", "invoice is "+inv.Status)
	}
	amount := req.Amount
	if amount == 0 {
		amount = inv.Balance()
	}
	if amount <= 0 {
		return response.Error(c, fiber.StatusConflict, "invalid_state", "invoice has no open balance")
	}

	p := &models.Payment{
		OrganizationID: inv.OrganizationID,
		InvoiceID:      inv.ID,
		Provider:       provider.Name(),
		ProviderRef:    strings.TrimSpace(req.ProviderRef),
		Amount:         amount,
		Currency:       inv.Currency,
		CheckoutURL:    req.CheckoutURL,
	}
	if err := r.Payment.Create(p); err != nil {
		return apiError(c, err)
	}

	if st, err := provider.Status(c.UserContext(), p.ProviderRef); err != nil {
		log.Warnf("[Payments] Initial status check of payment %d failed: %v", p.ID, err)
	} else if err := r.Payment.ApplyStatus(p, st.Status, st.RefundedAmount, now()); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(inv.OrganizationID)

	fresh, err := r.Payment.GetByID(p.OrganizationID, p.ID)
	if err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fresh)
}

// HandleRefreshPaymentStatus asks the provider for the current status and
// applies it to the payment and its invoice.
func HandleRefreshPaymentStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	r := repos()
	p, err := r.Payment.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	provider, err := payments.Default().Get(p.Provider)
	if err != nil {
		return paymentError(c, err)
	}
	st, err := provider.Status(c.UserContext(), p.ProviderRef)
	if err != nil {
		return paymentError(c, err)
	}
	if err := r.Payment.ApplyStatus(p, st.Status, st.RefundedAmount, now()); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(p.OrganizationID)

	fresh, err := r.Payment.GetByID(p.OrganizationID, p.ID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"payment": fresh, "provider_status": st})
}

// HandleRefundPayment refunds part or all of a collected payment. A zero
// amount refunds everything still refundable.
func HandleRefundPayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	var req refundRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	r := repos()
	p, err := r.Payment.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	refundable := p.Refundable()
	if refundable == 0 {
		return response.Error(c, fiber.StatusConflict, "invalid_state", "payment has nothing to refund")
	}
	amount := req.Amount
	if amount == 0 {
		amount = refundable
	}
	if amount > refundable {
		return response.Error(c, fiber.StatusBadRequest, "invalid_argument", "refund exceeds the refundable amount")
	}

	provider, err := payments.Default().Get(p.Provider)
	if err != nil {
		return paymentError(c, err)
	}
	result, err := provider.Refund(c.UserContext(), payments.RefundRequest{
		Reference: p.ProviderRef,
		Amount:    amount,
		Currency:  p.Currency,
		Reason:    req.Reason,
	})
	if err != nil {
		return paymentError(c, err)
	}

	refunded := p.RefundedAmount + amount
	status := models.PaymentStatusPartiallyRefunded
	if refunded >= p.Amount {
		status = models.PaymentStatusRefunded
	}
	if err := r.Payment.ApplyStatus(p, status, refunded, now()); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(p.OrganizationID)
	log.Infof("[Payments] Refunded %s of payment %d via %s", models.FormatAmount(amount, p.Currency), p.ID, p.Provider)

	fresh, err := r.Payment.GetByID(p.OrganizationID, p.ID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"payment": fresh, "refund": result})
}
