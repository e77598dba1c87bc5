// Package reporting computes the dashboard reports of an organization.
// Results are cached in Redis per organization, report and range.
package reporting

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/cache"
	"github.com/assettracer/assettracer/internal/pkg/database"
)

const (
	CacheKeyPrefix  = "reports:%d:"
	CacheExpiration = 5 * time.Minute
)

// Summary is the always available dashboard overview.
type Summary struct {
	Assets             int64 `json:"assets"`
	AssetsAvailable    int64 `json:"assets_available"`
	AssetsInUse        int64 `json:"assets_in_use"`
	InventoryItems     int64 `json:"inventory_items"`
	LowStockItems      int64 `json:"low_stock_items"`
	Clients            int64 `json:"clients"`
	OpenInvoices       int64 `json:"open_invoices"`
	OverdueInvoices    int64 `json:"overdue_invoices"`
	Outstanding        int64 `json:"outstanding"`
	RevenueThisMonth   int64 `json:"revenue_this_month"`
	ActiveReservations int64 `json:"active_reservations"`
}

// MonthlyPoint is one month of the revenue and asset charts.
type MonthlyPoint struct {
	Month        string `json:"month"`
	Revenue      int64  `json:"revenue"`
	Invoices     int64  `json:"invoices"`
	NewAssets    int64  `json:"new_assets"`
	Reservations int64  `json:"reservations"`
}

// TopAsset ranks an asset by reservation revenue.
type TopAsset struct {
	AssetID      uint   `json:"asset_id"`
	Name         string `json:"name"`
	Reservations int64  `json:"reservations"`
	Revenue      int64  `json:"revenue"`
}

// Growth compares the last month of the range with the month before.
type Growth struct {
	Month             string   `json:"month"`
	PreviousMonth     string   `json:"previous_month"`
	Revenue           int64    `json:"revenue"`
	PreviousRevenue   int64    `json:"previous_revenue"`
	RevenueChange     *float64 `json:"revenue_change"`
	NewAssets         int64    `json:"new_assets"`
	PreviousNewAssets int64    `json:"previous_new_assets"`
	AssetChange       *float64 `json:"asset_change"`
	NewClients        int64    `json:"new_clients"`
	PreviousClients   int64    `json:"previous_new_clients"`
	ClientChange      *float64 `json:"client_change"`
}

// AssetROI is the return on an asset's purchase price. ROI is nil when the
// purchase price is zero.
type AssetROI struct {
	AssetID       uint     `json:"asset_id"`
	Name          string   `json:"name"`
	PurchasePrice int64    `json:"purchase_price"`
	Revenue       int64    `json:"revenue"`
	ROI           *float64 `json:"roi"`
}

// CategoryRevenue groups reservation revenue by asset category.
type CategoryRevenue struct {
	Category string `json:"category"`
	Assets   int64  `json:"assets"`
	Revenue  int64  `json:"revenue"`
}

// Advanced holds the business tier analytics.
type Advanced struct {
	RevenueByCategory []CategoryRevenue `json:"revenue_by_category"`
	Utilization       float64           `json:"utilization"`
	AverageInvoice    int64             `json:"average_invoice"`
	CollectionRate    float64           `json:"collection_rate"`
	InventoryValue    int64             `json:"inventory_value"`
	QuotationWinRate  float64           `json:"quotation_win_rate"`
}

// Service runs report queries against the database.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// NewFromDB uses the shared database connection.
func NewFromDB() *Service {
	return New(database.GetDB())
}

// Invalidate drops every cached report of an organization.
func Invalidate(orgID uint) {
	if _, err := cache.DeletePattern(fmt.Sprintf(CacheKeyPrefix, orgID) + "*"); err != nil {
		log.Warnf("[Reporting] Failed to invalidate cache for org %d: %v", orgID, err)
	}
}

// cached loads key into out or computes and stores it. Cache failures only
// cost a recomputation.
func cached[T any](key string, compute func() (T, error)) (T, error) {
	var out T
	err := cache.GetJSON(key, &out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warnf("[Reporting] Cache read %s failed: %v", key, err)
	}
	out, err = compute()
	if err != nil {
		return out, err
	}
	if err := cache.SetJSON(key, out, CacheExpiration); err != nil {
		log.Warnf("[Reporting] Cache write %s failed: %v", key, err)
	}
	return out, nil
}

func cacheKey(orgID uint, report string, r *Range) string {
	key := fmt.Sprintf(CacheKeyPrefix, orgID) + report
	if r != nil {
		key += ":" + r.key()
	}
	return key
}

func (s *Service) tenant(model interface{}, orgID uint) *gorm.DB {
	return s.db.Model(model).Where("organization_id = ?", orgID)
}

// Summary returns the overview counters.
func (s *Service) Summary(orgID uint) (Summary, error) {
	return cached(cacheKey(orgID, "summary", nil), func() (Summary, error) {
		var out Summary
		now := s.now()
		counts := []struct {
			dst *int64
			q   *gorm.DB
		}{
			{&out.Assets, s.tenant(&models.Asset{}, orgID)},
			{&out.AssetsAvailable, s.tenant(&models.Asset{}, orgID).Where("status = ?", models.AssetStatusAvailable)},
			{&out.AssetsInUse, s.tenant(&models.Asset{}, orgID).Where("status = ?", models.AssetStatusInUse)},
			{&out.InventoryItems, s.tenant(&models.InventoryItem{}, orgID)},
			{&out.LowStockItems, s.tenant(&models.InventoryItem{}, orgID).Where("reorder_level > 0 AND quantity <= reorder_level")},
			{&out.Clients, s.tenant(&models.Client{}, orgID)},
			{&out.OpenInvoices, s.tenant(&models.Invoice{}, orgID).Where("status IN ?", []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue})},
			{&out.OverdueInvoices, s.tenant(&models.Invoice{}, orgID).Where("status = ?", models.InvoiceStatusOverdue)},
			{&out.ActiveReservations, s.tenant(&models.Reservation{}, orgID).
				Where("status IN ? AND starts_at <= ? AND ends_at > ?", []string{models.ReservationStatusPending, models.ReservationStatusConfirmed}, now, now)},
		}
		for _, c := range counts {
			if err := c.q.Count(c.dst).Error; err != nil {
				return out, err
			}
		}

		if err := s.tenant(&models.Invoice{}, orgID).
			Where("status IN ?", []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}).
			Select("COALESCE(SUM(total - amount_paid), 0)").Scan(&out.Outstanding).Error; err != nil {
			return out, err
		}
		start := monthStart(now)
		if err := s.tenant(&models.Invoice{}, orgID).
			Where("status = ? AND paid_at >= ? AND paid_at < ?", models.InvoiceStatusPaid, start, start.AddDate(0, 1, 0)).
			Select("COALESCE(SUM(total), 0)").Scan(&out.RevenueThisMonth).Error; err != nil {
			return out, err
		}
		return out, nil
	})
}

// Monthly buckets paid revenue, issued invoices, new assets and reservations
// per month of the range.
func (s *Service) Monthly(orgID uint, r Range) ([]MonthlyPoint, error) {
	return cached(cacheKey(orgID, "monthly", &r), func() ([]MonthlyPoint, error) {
		months := r.Months()
		points := make([]MonthlyPoint, len(months))
		index := make(map[string]int, len(months))
		for i, m := range months {
			points[i].Month = monthKey(m)
			index[points[i].Month] = i
		}
		bump := func(t *time.Time, f func(p *MonthlyPoint)) {
			if t == nil {
				return
			}
			if i, ok := index[monthKey(*t)]; ok {
				f(&points[i])
			}
		}

		var paid []models.Invoice
		if err := s.tenant(&models.Invoice{}, orgID).
			Where("status = ? AND paid_at >= ? AND paid_at < ?", models.InvoiceStatusPaid, r.From, r.To).
			Select("id", "total", "paid_at").Find(&paid).Error; err != nil {
			return nil, err
		}
		for _, inv := range paid {
			total := inv.Total
			bump(inv.PaidAt, func(p *MonthlyPoint) { p.Revenue += total })
		}

		var issued []models.Invoice
		if err := s.tenant(&models.Invoice{}, orgID).
			Where("status <> ? AND created_at >= ? AND created_at < ?", models.InvoiceStatusDraft, r.From, r.To).
			Select("id", "created_at").Find(&issued).Error; err != nil {
			return nil, err
		}
		for _, inv := range issued {
			created := inv.CreatedAt
			bump(&created, func(p *MonthlyPoint) { p.Invoices++ })
		}

		var assets []models.Asset
		if err := s.tenant(&models.Asset{}, orgID).
			Where("created_at >= ? AND created_at < ?", r.From, r.To).
			Select("id", "created_at").Find(&assets).Error; err != nil {
			return nil, err
		}
		for _, a := range assets {
			created := a.CreatedAt
			bump(&created, func(p *MonthlyPoint) { p.NewAssets++ })
		}

		var reservations []models.Reservation
		if err := s.tenant(&models.Reservation{}, orgID).
			Where("status <> ? AND starts_at >= ? AND starts_at < ?", models.ReservationStatusCancelled, r.From, r.To).
			Select("id", "starts_at").Find(&reservations).Error; err != nil {
			return nil, err
		}
		for _, res := range reservations {
			start := res.StartsAt
			bump(&start, func(p *MonthlyPoint) { p.Reservations++ })
		}
		return points, nil
	})
}

type assetRevenue struct {
	AssetID      uint
	Reservations int64
	Revenue      int64
}

// reservationRevenue sums non-cancelled reservation amounts per asset.
// A nil range covers all time.
func (s *Service) reservationRevenue(orgID uint, r *Range) (map[uint]assetRevenue, error) {
	q := s.tenant(&models.Reservation{}, orgID).Where("status <> ?", models.ReservationStatusCancelled)
	if r != nil {
		q = q.Where("starts_at >= ? AND starts_at < ?", r.From, r.To)
	}
	var rows []assetRevenue
	if err := q.Select("asset_id, COUNT(*) AS reservations, COALESCE(SUM(amount), 0) AS revenue").
		Group("asset_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]assetRevenue, len(rows))
	for _, row := range rows {
		out[row.AssetID] = row
	}
	return out, nil
}

// TopAssets ranks assets by reservation revenue within the range.
func (s *Service) TopAssets(orgID uint, r Range, limit int) ([]TopAsset, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return cached(cacheKey(orgID, fmt.Sprintf("top-assets:%d", limit), &r), func() ([]TopAsset, error) {
		revenue, err := s.reservationRevenue(orgID, &r)
		if err != nil {
			return nil, err
		}
		if len(revenue) == 0 {
			return []TopAsset{}, nil
		}
		ids := make([]uint, 0, len(revenue))
		for id := range revenue {
			ids = append(ids, id)
		}
		var assets []models.Asset
		if err := s.tenant(&models.Asset{}, orgID).Where("id IN ?", ids).Select("id", "name").Find(&assets).Error; err != nil {
			return nil, err
		}

		out := make([]TopAsset, 0, len(assets))
		for _, a := range assets {
			rv := revenue[a.ID]
			out = append(out, TopAsset{AssetID: a.ID, Name: a.Name, Reservations: rv.Reservations, Revenue: rv.Revenue})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Revenue != out[j].Revenue {
				return out[i].Revenue > out[j].Revenue
			}
			return out[i].AssetID < out[j].AssetID
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	})
}

// Growth compares the month containing the end of the range with the month
// before it.
func (s *Service) Growth(orgID uint, r Range) (Growth, error) {
	return cached(cacheKey(orgID, "growth", &r), func() (Growth, error) {
		current := monthStart(r.To.Add(-time.Nanosecond))
		previous := current.AddDate(0, -1, 0)
		next := current.AddDate(0, 1, 0)

		var g Growth
		g.Month, g.PreviousMonth = monthKey(current), monthKey(previous)

		sumPaid := func(from, to time.Time, dst *int64) error {
			return s.tenant(&models.Invoice{}, orgID).
				Where("status = ? AND paid_at >= ? AND paid_at < ?", models.InvoiceStatusPaid, from, to).
				Select("COALESCE(SUM(total), 0)").Scan(dst).Error
		}
		countCreated := func(model interface{}, from, to time.Time, dst *int64) error {
			return s.tenant(model, orgID).Where("created_at >= ? AND created_at < ?", from, to).Count(dst).Error
		}

		steps := []func() error{
			func() error { return sumPaid(current, next, &g.Revenue) },
			func() error { return sumPaid(previous, current, &g.PreviousRevenue) },
			func() error { return countCreated(&models.Asset{}, current, next, &g.NewAssets) },
			func() error { return countCreated(&models.Asset{}, previous, current, &g.PreviousNewAssets) },
			func() error { return countCreated(&models.Client{}, current, next, &g.NewClients) },
			func() error { return countCreated(&models.Client{}, previous, current, &g.PreviousClients) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return g, err
			}
		}
		g.RevenueChange = percentChange(g.PreviousRevenue, g.Revenue)
		g.AssetChange = percentChange(g.PreviousNewAssets, g.NewAssets)
		g.ClientChange = percentChange(g.PreviousClients, g.NewClients)
		return g, nil
	})
}

// ROI returns the all-time return of every asset, best first. A single asset
// is selected with assetID > 0.
func (s *Service) ROI(orgID, assetID uint) ([]AssetROI, error) {
	return cached(cacheKey(orgID, fmt.Sprintf("roi:%d", assetID), nil), func() ([]AssetROI, error) {
		q := s.tenant(&models.Asset{}, orgID)
		if assetID > 0 {
			q = q.Where("id = ?", assetID)
		}
		var assets []models.Asset
		if err := q.Select("id", "name", "purchase_price").Order("id").Find(&assets).Error; err != nil {
			return nil, err
		}
		if assetID > 0 && len(assets) == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		revenue, err := s.reservationRevenue(orgID, nil)
		if err != nil {
			return nil, err
		}

		out := make([]AssetROI, 0, len(assets))
		for _, a := range assets {
			row := AssetROI{AssetID: a.ID, Name: a.Name, PurchasePrice: a.PurchasePrice, Revenue: revenue[a.ID].Revenue}
			row.ROI = ROI(row.Revenue, row.PurchasePrice)
			out = append(out, row)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].ROI == nil || out[j].ROI == nil {
				return out[j].ROI == nil && out[i].ROI != nil
			}
			return *out[i].ROI > *out[j].ROI
		})
		return out, nil
	})
}

// Advanced returns the business tier analytics for the range.
func (s *Service) Advanced(orgID uint, r Range) (Advanced, error) {
	return cached(cacheKey(orgID, "advanced", &r), func() (Advanced, error) {
		var out Advanced

		revenue, err := s.reservationRevenue(orgID, &r)
		if err != nil {
			return out, err
		}
		var assets []models.Asset
		if err := s.tenant(&models.Asset{}, orgID).Select("id", "category").Find(&assets).Error; err != nil {
			return out, err
		}
		byCategory := map[string]*CategoryRevenue{}
		for _, a := range assets {
			name := a.Category
			if name == "" {
				name = "uncategorized"
			}
			c, ok := byCategory[name]
			if !ok {
				c = &CategoryRevenue{Category: name}
				byCategory[name] = c
			}
			c.Assets++
			c.Revenue += revenue[a.ID].Revenue
		}
		out.RevenueByCategory = make([]CategoryRevenue, 0, len(byCategory))
		for _, c := range byCategory {
			out.RevenueByCategory = append(out.RevenueByCategory, *c)
		}
		sort.Slice(out.RevenueByCategory, func(i, j int) bool {
			a, b := out.RevenueByCategory[i], out.RevenueByCategory[j]
			if a.Revenue != b.Revenue {
				return a.Revenue > b.Revenue
			}
			return a.Category < b.Category
		})

		var booked []models.Reservation
		if err := s.tenant(&models.Reservation{}, orgID).
			Where("status <> ? AND starts_at < ? AND ends_at > ?", models.ReservationStatusCancelled, r.To, r.From).
			Select("id", "starts_at", "ends_at").Find(&booked).Error; err != nil {
			return out, err
		}
		out.Utilization = utilization(booked, r, len(assets))

		var invoiced struct {
			Count int64
			Total int64
			Paid  int64
		}
		if err := s.tenant(&models.Invoice{}, orgID).
			Where("status NOT IN ? AND issue_date >= ? AND issue_date < ?", []string{models.InvoiceStatusDraft, models.InvoiceStatusCancelled}, r.From, r.To).
			Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS total, COALESCE(SUM(amount_paid), 0) AS paid").
			Scan(&invoiced).Error; err != nil {
			return out, err
		}
		if invoiced.Count > 0 {
			out.AverageInvoice = invoiced.Total / invoiced.Count
		}
		if invoiced.Total > 0 {
			out.CollectionRate = round2(float64(invoiced.Paid) / float64(invoiced.Total))
		}

		if err := s.tenant(&models.InventoryItem{}, orgID).
			Select("COALESCE(SUM(quantity * unit_cost), 0)").Scan(&out.InventoryValue).Error; err != nil {
			return out, err
		}

		var quotes struct {
			Total    int64
			Accepted int64
		}
		if err := s.tenant(&models.Quotation{}, orgID).
			Where("created_at >= ? AND created_at < ? AND status <> ?", r.From, r.To, models.QuotationStatusDraft).
			Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? OR invoice_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS accepted",
				models.QuotationStatusAccepted).
			Scan(&quotes).Error; err != nil {
			return out, err
		}
		if quotes.Total > 0 {
			out.QuotationWinRate = round2(float64(quotes.Accepted) / float64(quotes.Total))
		}
		return out, nil
	})
}

// ROI is (revenue - cost) / cost, nil when cost is not positive.
func ROI(revenue, cost int64) *float64 {
	if cost <= 0 {
		return nil
	}
	v := round2(float64(revenue-cost) / float64(cost))
	return &v
}

// percentChange is the relative change from prev to cur in percent, nil
// when prev is zero.
func percentChange(prev, cur int64) *float64 {
	if prev == 0 {
		return nil
	}
	v := round2(float64(cur-prev) / float64(prev) * 100)
	return &v
}

// utilization is the share of asset-days in r covered by reservations.
func utilization(booked []models.Reservation, r Range, assets int) float64 {
	if assets == 0 {
		return 0
	}
	capacity := r.To.Sub(r.From).Hours() * float64(assets)
	if capacity <= 0 {
		return 0
	}
	var used float64
	for _, res := range booked {
		start, end := res.StartsAt, res.EndsAt
		if start.Before(r.From) {
			start = r.From
		}
		if end.After(r.To) {
			end = r.To
		}
		if end.After(start) {
			used += end.Sub(start).Hours()
		}
	}
	u := used / capacity
	if u > 1 {
		u = 1
	}
	return round2(u)
}

func round2(v float64) float64 {
	if v < 0 {
		return -float64(int64(-v*100+0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
