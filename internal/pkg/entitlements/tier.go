package entitlements

import "slices"

// Tier is a subscription plan of an organization.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

var tiers = []Tier{TierFree, TierPro, TierBusiness}

// AllTiers lists all tiers in ascending order of capability.
func AllTiers() []Tier {
	return slices.Clone(tiers)
}

// ResolveTier normalizes a stored tier value. Anything that is not exactly
// "pro" or "business" is treated as free.
func ResolveTier(raw string) Tier {
	switch Tier(raw) {
	case TierPro:
		return TierPro
	case TierBusiness:
		return TierBusiness
	default:
		return TierFree
	}
}

// ResolveTierPtr is ResolveTier for nullable columns.
func ResolveTierPtr(raw *string) Tier {
	if raw == nil {
		return TierFree
	}
	return ResolveTier(*raw)
}

// Rank orders tiers by capability: free=0, pro=1, business=2.
func (t Tier) Rank() int {
	switch ResolveTier(string(t)) {
	case TierBusiness:
		return 2
	case TierPro:
		return 1
	default:
		return 0
	}
}

func (t Tier) String() string {
	return string(t)
}

// Resource is a quota-limited resource kind.
type Resource string

const (
	ResourceAssets             Resource = "maxAssets"
	ResourceInventoryItems     Resource = "maxInventoryItems"
	ResourceInvoicesPerMonth   Resource = "maxInvoicesPerMonth"
	ResourceQuotationsPerMonth Resource = "maxQuotationsPerMonth"
	ResourceUsers              Resource = "maxUsers"
)

var resources = []Resource{
	ResourceAssets,
	ResourceInventoryItems,
	ResourceInvoicesPerMonth,
	ResourceQuotationsPerMonth,
	ResourceUsers,
}

// AllResources lists every quota-limited resource kind.
func AllResources() []Resource {
	return slices.Clone(resources)
}

// Valid reports whether r is one of the enumerated resource kinds.
func (r Resource) Valid() bool {
	for _, known := range resources {
		if r == known {
			return true
		}
	}
	return false
}

// Feature is a boolean capability gate.
type Feature string

const (
	FeatureAdvancedReporting  Feature = "hasAdvancedReporting"
	FeaturePDFExport          Feature = "hasPDFExport"
	FeatureCSVExport          Feature = "hasCSVExport"
	FeaturePaymentIntegration Feature = "hasPaymentIntegration"
	FeatureCustomBranding     Feature = "hasCustomBranding"
	FeatureROITracking        Feature = "hasROITracking"
	FeatureMonthlyCharts      Feature = "hasMonthlyCharts"
	FeatureTopPerformersChart Feature = "hasTopPerformersChart"
	FeatureGrowthMetrics      Feature = "hasGrowthMetrics"
	FeatureDateRangeFilter    Feature = "hasDateRangeFilter"
)

var features = []Feature{
	FeatureAdvancedReporting,
	FeaturePDFExport,
	FeatureCSVExport,
	FeaturePaymentIntegration,
	FeatureCustomBranding,
	FeatureROITracking,
	FeatureMonthlyCharts,
	FeatureTopPerformersChart,
	FeatureGrowthMetrics,
	FeatureDateRangeFilter,
}

// AllFeatures lists every feature flag.
func AllFeatures() []Feature {
	return slices.Clone(features)
}

// Valid reports whether f is one of the enumerated feature flags.
func (f Feature) Valid() bool {
	for _, known := range features {
		if f == known {
			return true
		}
	}
	return false
}
