package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/testutil"
)

var fixedNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	org    *models.Organization
	client *models.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.NewRedis(t)
	org, _ := testutil.SeedOrganization(t, db, "business")
	client := &models.Client{OrganizationID: org.ID, Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, db.Create(client).Error)
	svc := New(db)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{db: db, svc: svc, org: org, client: client}
}

func (f *fixture) asset(t *testing.T, name, category string, price int64, created time.Time) *models.Asset {
	t.Helper()
	a := &models.Asset{OrganizationID: f.org.ID, Name: name, Category: category, PurchasePrice: price, CreatedAt: created}
	require.NoError(t, f.db.Create(a).Error)
	return a
}

func (f *fixture) reserve(t *testing.T, a *models.Asset, start time.Time, days int, amount int64, status string) {
	t.Helper()
	r := &models.Reservation{
		OrganizationID: f.org.ID, AssetID: a.ID, ClientID: f.client.ID,
		StartsAt: start, EndsAt: start.AddDate(0, 0, days), Amount: amount, Status: status,
	}
	require.NoError(t, f.db.Create(r).Error)
}

func (f *fixture) invoice(t *testing.T, number, status string, total, paid int64, issued time.Time, paidAt *time.Time) {
	t.Helper()
	inv := &models.Invoice{
		OrganizationID: f.org.ID, ClientID: f.client.ID, Number: number, Status: status,
		IssueDate: issued, DueDate: issued.AddDate(0, 0, 14), Total: total, AmountPaid: paid,
		PaidAt: paidAt, CreatedAt: issued,
	}
	require.NoError(t, f.db.Create(inv).Error)
}

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestParseRange(t *testing.T) {
	r, err := ParseRange("", "", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), r.To)
	assert.Len(t, r.Months(), 12)

	r, err = ParseRange("2026-01-01", "2026-01-31", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), r.To)
	assert.Len(t, r.Months(), 1)

	_, err = ParseRange("2026-02-01", "2026-01-01", fixedNow)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = ParseRange("yesterday", "", fixedNow)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = ParseRange("2000-01-01", "2026-01-01", fixedNow)
	assert.ErrorIs(t, err, ErrInvalidRange)

	assert.True(t, Custom("2026-01-01", ""))
	assert.False(t, Custom("", ""))
}

func TestROIAndPercentChange(t *testing.T) {
	assert.Nil(t, ROI(500, 0))
	require.NotNil(t, ROI(1500, 1000))
	assert.Equal(t, 0.5, *ROI(1500, 1000))
	assert.Equal(t, -0.75, *ROI(250, 1000))

	assert.Nil(t, percentChange(0, 10))
	assert.Equal(t, 100.0, *percentChange(5, 10))
	assert.Equal(t, -50.0, *percentChange(10, 5))
}

func TestSummary(t *testing.T) {
	f := setup(t)
	drill := f.asset(t, "Drill", "tools", 10000, at(2026, 1, 5))
	f.asset(t, "Van", "vehicles", 0, at(2026, 2, 5))
	require.NoError(t, f.db.Model(drill).Update("status", models.AssetStatusInUse).Error)
	require.NoError(t, f.db.Create(&models.InventoryItem{OrganizationID: f.org.ID, Name: "Bits", Quantity: 2, ReorderLevel: 5}).Error)
	f.reserve(t, drill, at(2026, 3, 14), 3, 3000, models.ReservationStatusConfirmed)
	f.invoice(t, "INV-000001", models.InvoiceStatusSent, 5000, 1000, at(2026, 3, 1), nil)
	f.invoice(t, "INV-000002", models.InvoiceStatusOverdue, 2000, 0, at(2026, 1, 1), nil)
	f.invoice(t, "INV-000003", models.InvoiceStatusPaid, 7000, 7000, at(2026, 3, 2), ptr(at(2026, 3, 10)))

	s, err := f.svc.Summary(f.org.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.Assets)
	assert.EqualValues(t, 1, s.AssetsInUse)
	assert.EqualValues(t, 1, s.AssetsAvailable)
	assert.EqualValues(t, 1, s.LowStockItems)
	assert.EqualValues(t, 1, s.Clients)
	assert.EqualValues(t, 2, s.OpenInvoices)
	assert.EqualValues(t, 1, s.OverdueInvoices)
	assert.EqualValues(t, 6000, s.Outstanding)
	assert.EqualValues(t, 7000, s.RevenueThisMonth)
	assert.EqualValues(t, 1, s.ActiveReservations)
}

func TestSummaryIsCachedUntilInvalidated(t *testing.T) {
	f := setup(t)
	f.asset(t, "Drill", "tools", 0, at(2026, 1, 5))

	s, err := f.svc.Summary(f.org.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.Assets)

	f.asset(t, "Saw", "tools", 0, at(2026, 1, 6))
	s, err = f.svc.Summary(f.org.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.Assets, "served from cache")

	Invalidate(f.org.ID)
	s, err = f.svc.Summary(f.org.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.Assets)
}

func TestMonthly(t *testing.T) {
	f := setup(t)
	drill := f.asset(t, "Drill", "tools", 0, at(2026, 1, 5))
	f.asset(t, "Saw", "tools", 0, at(2026, 2, 5))
	f.reserve(t, drill, at(2026, 2, 10), 2, 1000, models.ReservationStatusCompleted)
	f.reserve(t, drill, at(2026, 2, 20), 2, 1000, models.ReservationStatusCancelled)
	f.invoice(t, "INV-000001", models.InvoiceStatusPaid, 4000, 4000, at(2026, 1, 20), ptr(at(2026, 2, 3)))
	f.invoice(t, "INV-000002", models.InvoiceStatusDraft, 9000, 0, at(2026, 2, 1), nil)

	r, err := ParseRange("2026-01-01", "2026-02-28", fixedNow)
	require.NoError(t, err)
	points, err := f.svc.Monthly(f.org.ID, r)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, MonthlyPoint{Month: "2026-01", Invoices: 1, NewAssets: 1}, points[0])
	assert.Equal(t, MonthlyPoint{Month: "2026-02", Revenue: 4000, NewAssets: 1, Reservations: 1}, points[1])
}

func TestTopAssetsAndROI(t *testing.T) {
	f := setup(t)
	drill := f.asset(t, "Drill", "tools", 10000, at(2025, 6, 1))
	van := f.asset(t, "Van", "vehicles", 20000, at(2025, 6, 1))
	gift := f.asset(t, "Donated chair", "furniture", 0, at(2025, 6, 1))
	f.reserve(t, drill, at(2026, 1, 3), 1, 15000, models.ReservationStatusCompleted)
	f.reserve(t, van, at(2026, 1, 5), 1, 5000, models.ReservationStatusCompleted)
	f.reserve(t, van, at(2026, 2, 5), 1, 5000, models.ReservationStatusConfirmed)
	f.reserve(t, gift, at(2026, 2, 7), 1, 100, models.ReservationStatusCancelled)

	r, err := ParseRange("2026-01-01", "2026-03-31", fixedNow)
	require.NoError(t, err)
	top, err := f.svc.TopAssets(f.org.ID, r, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, TopAsset{AssetID: drill.ID, Name: "Drill", Reservations: 1, Revenue: 15000}, top[0])
	assert.Equal(t, TopAsset{AssetID: van.ID, Name: "Van", Reservations: 2, Revenue: 10000}, top[1])

	rows, err := f.svc.ROI(f.org.ID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, drill.ID, rows[0].AssetID)
	assert.Equal(t, 0.5, *rows[0].ROI)
	assert.Equal(t, -0.5, *rows[1].ROI)
	assert.Nil(t, rows[2].ROI)

	one, err := f.svc.ROI(f.org.ID, van.ID)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.EqualValues(t, 10000, one[0].Revenue)

	_, err = f.svc.ROI(f.org.ID, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGrowth(t *testing.T) {
	f := setup(t)
	f.asset(t, "A", "", 0, at(2026, 2, 1))
	f.asset(t, "B", "", 0, at(2026, 3, 1))
	f.asset(t, "C", "", 0, at(2026, 3, 2))
	f.invoice(t, "INV-000001", models.InvoiceStatusPaid, 1000, 1000, at(2026, 2, 1), ptr(at(2026, 2, 2)))
	f.invoice(t, "INV-000002", models.InvoiceStatusPaid, 1500, 1500, at(2026, 3, 1), ptr(at(2026, 3, 2)))

	g, err := f.svc.Growth(f.org.ID, DefaultRange(fixedNow))
	require.NoError(t, err)
	assert.Equal(t, "2026-03", g.Month)
	assert.Equal(t, "2026-02", g.PreviousMonth)
	assert.EqualValues(t, 1500, g.Revenue)
	assert.Equal(t, 50.0, *g.RevenueChange)
	assert.Equal(t, 100.0, *g.AssetChange)
	assert.Nil(t, g.ClientChange)
}

func TestAdvanced(t *testing.T) {
	f := setup(t)
	drill := f.asset(t, "Drill", "tools", 0, at(2025, 1, 1))
	f.asset(t, "Chair", "", 0, at(2025, 1, 1))
	f.reserve(t, drill, at(2026, 1, 1), 10, 5000, models.ReservationStatusCompleted)
	f.invoice(t, "INV-000001", models.InvoiceStatusPaid, 4000, 4000, at(2026, 1, 5), ptr(at(2026, 1, 6)))
	f.invoice(t, "INV-000002", models.InvoiceStatusSent, 6000, 0, at(2026, 1, 7), nil)
	require.NoError(t, f.db.Create(&models.InventoryItem{OrganizationID: f.org.ID, Name: "Bits", Quantity: 3, UnitCost: 250}).Error)
	require.NoError(t, f.db.Create(&models.Quotation{OrganizationID: f.org.ID, ClientID: f.client.ID, Number: "QUO-000001",
		Status: models.QuotationStatusAccepted, CreatedAt: at(2026, 1, 2)}).Error)
	require.NoError(t, f.db.Create(&models.Quotation{OrganizationID: f.org.ID, ClientID: f.client.ID, Number: "QUO-000002",
		Status: models.QuotationStatusRejected, CreatedAt: at(2026, 1, 3)}).Error)

	r, err := ParseRange("2026-01-01", "2026-01-31", fixedNow)
	require.NoError(t, err)
	adv, err := f.svc.Advanced(f.org.ID, r)
	require.NoError(t, err)

	require.Len(t, adv.RevenueByCategory, 2)
	assert.Equal(t, CategoryRevenue{Category: "tools", Assets: 1, Revenue: 5000}, adv.RevenueByCategory[0])
	assert.Equal(t, "uncategorized", adv.RevenueByCategory[1].Category)
	assert.EqualValues(t, 5000, adv.AverageInvoice)
	assert.Equal(t, 0.4, adv.CollectionRate)
	assert.EqualValues(t, 750, adv.InventoryValue)
	assert.Equal(t, 0.5, adv.QuotationWinRate)
	assert.Equal(t, 0.16, adv.Utilization)
}

func TestReportsAreTenantScoped(t *testing.T) {
	f := setup(t)
	f.asset(t, "Drill", "tools", 0, at(2026, 1, 5))
	other, _ := testutil.SeedOrganization(t, f.db, "business")

	s, err := f.svc.Summary(other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.Assets)
}
