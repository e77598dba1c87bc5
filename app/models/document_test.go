package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotalsRoundsTaxHalfUp(t *testing.T) {
	items := []*LineItem{
		{Description: "Camera rental", Quantity: 3, UnitPrice: 1999},
		{Description: "Tripod", Quantity: 1, UnitPrice: 500},
	}

	totals, err := ComputeTotals(items, 1550) // 15.5%
	require.NoError(t, err)

	assert.Equal(t, int64(5997), items[0].Total)
	assert.Equal(t, int64(6497), totals.Subtotal)
	assert.Equal(t, int64(1007), totals.Tax)
	assert.Equal(t, int64(7504), totals.Total)
}

func TestComputeTotalsRejectsInvalidItems(t *testing.T) {
	_, err := ComputeTotals([]*LineItem{{Description: "x", Quantity: 0, UnitPrice: 10}}, 0)
	assert.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = ComputeTotals([]*LineItem{{Description: "x", Quantity: 1, UnitPrice: -1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestInvoiceOverdueAndPayments(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{Status: InvoiceStatusSent, DueDate: due, Items: []InvoiceItem{
		{LineItem: LineItem{Description: "Service", Quantity: 2, UnitPrice: 2500}},
	}}
	require.NoError(t, inv.Recalculate())
	assert.Equal(t, int64(5000), inv.Total)

	assert.False(t, inv.IsOverdue(due.Add(23*time.Hour)))
	assert.True(t, inv.IsOverdue(due.Add(24*time.Hour)))

	draft := &Invoice{Status: InvoiceStatusDraft, DueDate: due}
	assert.False(t, draft.IsOverdue(due.AddDate(0, 1, 0)))

	now := due.Add(48 * time.Hour)
	inv.ApplyPayment(2000, now)
	assert.Equal(t, InvoiceStatusSent, inv.Status)
	assert.Equal(t, int64(3000), inv.Balance())

	inv.ApplyPayment(3000, now)
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidAt)

	inv.ApplyRefund(1000)
	assert.Equal(t, InvoiceStatusSent, inv.Status)
	assert.Nil(t, inv.PaidAt)
	assert.Equal(t, int64(1000), inv.Balance())
}

func TestQuotationConversion(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	q := &Quotation{
		ID:             7,
		OrganizationID: 3,
		ClientID:       9,
		Status:         QuotationStatusAccepted,
		Currency:       "EUR",
		TaxRate:        1900,
		ValidUntil:     time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Items: []QuotationItem{
			{LineItem: LineItem{Description: "Projector", Quantity: 1, UnitPrice: 10000}},
		},
	}
	require.True(t, q.CanConvert(now))
	assert.True(t, q.IsExpired(now.AddDate(0, 0, 1)))

	inv := q.ToInvoice(now, 14)
	require.NoError(t, inv.Recalculate())
	assert.Equal(t, uint(3), inv.OrganizationID)
	require.NotNil(t, inv.QuotationID)
	assert.Equal(t, uint(7), *inv.QuotationID)
	assert.Equal(t, InvoiceStatusDraft, inv.Status)
	assert.Equal(t, now.AddDate(0, 0, 14), inv.DueDate)
	assert.Equal(t, int64(11900), inv.Total)

	id := uint(1)
	q.InvoiceID = &id
	assert.False(t, q.CanConvert(now))
}

func TestReservationDaysAndOverlap(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	r := &Reservation{StartsAt: start, EndsAt: start.Add(49 * time.Hour)}

	assert.Equal(t, int64(3), r.Days())
	assert.True(t, r.Overlaps(start.Add(48*time.Hour), start.Add(72*time.Hour)))
	assert.False(t, r.Overlaps(start.Add(49*time.Hour), start.Add(72*time.Hour)))
}

func TestOrganizationBrandingFollowsTier(t *testing.T) {
	org := &Organization{Name: "Acme", BrandName: "Acme Rentals", Tier: "pro"}
	assert.Equal(t, "Acme", org.DisplayName())

	org.Tier = "business"
	assert.Equal(t, "Acme Rentals", org.DisplayName())

	org.Tier = "enterprise"
	assert.Equal(t, "free", org.EffectiveTier().String())
}

func TestInvitationToken(t *testing.T) {
	now := time.Now()
	inv := &Invitation{Status: InvitationStatusPending}
	raw, err := inv.IssueToken(now)
	require.NoError(t, err)

	assert.Equal(t, HashInvitationToken(raw), inv.TokenHash)
	assert.True(t, inv.IsUsable(now))
	assert.False(t, inv.IsUsable(now.Add(InvitationTTL)))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1234.50 USD", FormatAmount(123450, "USD"))
	assert.Equal(t, "0.05 EUR", FormatAmount(5, "EUR"))
	assert.Equal(t, "-3.00 USD", FormatAmount(-300, "USD"))
}
