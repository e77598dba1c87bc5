package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/middleware"
	"github.com/assettracer/assettracer/internal/pkg/reporting"
)

const maxTopAssets = 50

// reportRange parses from/to. A caller-chosen range needs the date range
// filter feature; everyone else gets the default twelve months.
func reportRange(c *fiber.Ctx) (reporting.Range, error) {
	from, to := c.Query("from"), c.Query("to")
	if reporting.Custom(from, to) {
		if err := entitlements.RequireFeatureOrReject(string(middleware.Tier(c)), entitlements.FeatureDateRangeFilter); err != nil {
			return reporting.Range{}, err
		}
	}
	return reporting.ParseRange(from, to, now())
}

// HandleReportSummary is available on every tier.
func HandleReportSummary(c *fiber.Ctx) error {
	summary, err := reporting.NewFromDB().Summary(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(summary)
}

func HandleReportMonthly(c *fiber.Ctx) error {
	rng, err := reportRange(c)
	if err != nil {
		return apiError(c, err)
	}
	points, err := reporting.NewFromDB().Monthly(orgID(c), rng)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"from": rng.From, "to": rng.To, "months": points})
}

func HandleReportTopAssets(c *fiber.Ctx) error {
	rng, err := reportRange(c)
	if err != nil {
		return apiError(c, err)
	}
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > maxTopAssets {
		limit = 10
	}
	top, err := reporting.NewFromDB().TopAssets(orgID(c), rng, limit)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"from": rng.From, "to": rng.To, "assets": top})
}

func HandleReportGrowth(c *fiber.Ctx) error {
	rng, err := reportRange(c)
	if err != nil {
		return apiError(c, err)
	}
	growth, err := reporting.NewFromDB().Growth(orgID(c), rng)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(growth)
}

// HandleReportROI lists the return on investment of every asset.
func HandleReportROI(c *fiber.Ctx) error {
	rows, err := reporting.NewFromDB().ROI(orgID(c), 0)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{"assets": rows})
}

func HandleReportAdvanced(c *fiber.Ctx) error {
	rng, err := reportRange(c)
	if err != nil {
		return apiError(c, err)
	}
	adv, err := reporting.NewFromDB().Advanced(orgID(c), rng)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(adv)
}
