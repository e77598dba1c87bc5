package entitlements

// TierLimits holds the quotas and feature flags of one tier.
// Values handed out by this package are copies of the static table.
type TierLimits struct {
	Tier Tier `json:"tier"`

	MaxAssets             Limit `json:"maxAssets"`
	MaxInventoryItems     Limit `json:"maxInventoryItems"`
	MaxInvoicesPerMonth   Limit `json:"maxInvoicesPerMonth"`
	MaxQuotationsPerMonth Limit `json:"maxQuotationsPerMonth"`
	MaxUsers              Limit `json:"maxUsers"`

	HasAdvancedReporting  bool `json:"hasAdvancedReporting"`
	HasPDFExport          bool `json:"hasPDFExport"`
	HasCSVExport          bool `json:"hasCSVExport"`
	HasPaymentIntegration bool `json:"hasPaymentIntegration"`
	HasCustomBranding     bool `json:"hasCustomBranding"`
	HasROITracking        bool `json:"hasROITracking"`
	HasMonthlyCharts      bool `json:"hasMonthlyCharts"`
	HasTopPerformersChart bool `json:"hasTopPerformersChart"`
	HasGrowthMetrics      bool `json:"hasGrowthMetrics"`
	HasDateRangeFilter    bool `json:"hasDateRangeFilter"`
}

var tierTable = map[Tier]TierLimits{
	TierFree: {
		Tier:                  TierFree,
		MaxAssets:             Finite(20),
		MaxInventoryItems:     Finite(50),
		MaxInvoicesPerMonth:   Finite(5),
		MaxQuotationsPerMonth: Finite(5),
		MaxUsers:              Finite(1),
	},
	TierPro: {
		Tier:                  TierPro,
		MaxAssets:             Finite(500),
		MaxInventoryItems:     Finite(1000),
		MaxInvoicesPerMonth:   Finite(100),
		MaxQuotationsPerMonth: Finite(100),
		MaxUsers:              Finite(5),
		HasAdvancedReporting:  true,
		HasPDFExport:          true,
		HasCSVExport:          true,
		HasPaymentIntegration: true,
		HasROITracking:        true,
		HasMonthlyCharts:      true,
		HasTopPerformersChart: true,
		HasDateRangeFilter:    true,
	},
	TierBusiness: {
		Tier:                  TierBusiness,
		MaxAssets:             Unlimited(),
		MaxInventoryItems:     Unlimited(),
		MaxInvoicesPerMonth:   Unlimited(),
		MaxQuotationsPerMonth: Unlimited(),
		MaxUsers:              Unlimited(),
		HasAdvancedReporting:  true,
		HasPDFExport:          true,
		HasCSVExport:          true,
		HasPaymentIntegration: true,
		HasCustomBranding:     true,
		HasROITracking:        true,
		HasMonthlyCharts:      true,
		HasTopPerformersChart: true,
		HasGrowthMetrics:      true,
		HasDateRangeFilter:    true,
	},
}

// Quota returns the limit for resource r. ok is false for unknown resources.
func (l TierLimits) Quota(r Resource) (limit Limit, ok bool) {
	switch r {
	case ResourceAssets:
		return l.MaxAssets, true
	case ResourceInventoryItems:
		return l.MaxInventoryItems, true
	case ResourceInvoicesPerMonth:
		return l.MaxInvoicesPerMonth, true
	case ResourceQuotationsPerMonth:
		return l.MaxQuotationsPerMonth, true
	case ResourceUsers:
		return l.MaxUsers, true
	default:
		return Limit{}, false
	}
}

// Flag returns the value of feature f. ok is false for unknown features.
func (l TierLimits) Flag(f Feature) (enabled bool, ok bool) {
	switch f {
	case FeatureAdvancedReporting:
		return l.HasAdvancedReporting, true
	case FeaturePDFExport:
		return l.HasPDFExport, true
	case FeatureCSVExport:
		return l.HasCSVExport, true
	case FeaturePaymentIntegration:
		return l.HasPaymentIntegration, true
	case FeatureCustomBranding:
		return l.HasCustomBranding, true
	case FeatureROITracking:
		return l.HasROITracking, true
	case FeatureMonthlyCharts:
		return l.HasMonthlyCharts, true
	case FeatureTopPerformersChart:
		return l.HasTopPerformersChart, true
	case FeatureGrowthMetrics:
		return l.HasGrowthMetrics, true
	case FeatureDateRangeFilter:
		return l.HasDateRangeFilter, true
	default:
		return false, false
	}
}

// EnabledFeatures lists the features switched on for the tier, in table order.
func (l TierLimits) EnabledFeatures() []Feature {
	out := make([]Feature, 0, len(features))
	for _, f := range features {
		if on, _ := l.Flag(f); on {
			out = append(out, f)
		}
	}
	return out
}
