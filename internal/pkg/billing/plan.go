package billing

import (
	"strings"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/env"
)

// normalizeTier maps provider supplied tier names onto a known tier.
// Provider metadata is not trusted to match case, so it is lowered first.
func normalizeTier(tier string) entitlements.Tier {
	return entitlements.ResolveTier(strings.ToLower(strings.TrimSpace(tier)))
}

func tierRank(tier string) int {
	return normalizeTier(tier).Rank()
}

func normalizeInterval(interval string) string {
	i := strings.ToLower(strings.TrimSpace(interval))
	switch i {
	case models.BillingIntervalMonth, models.BillingIntervalYear:
		return i
	default:
		return models.BillingIntervalUnknown
	}
}

func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.BillingStatusActive, models.BillingStatusTrialing, models.BillingStatusPastDue:
		return true
	default:
		return false
	}
}

// normalizeStatus folds Stripe and Polar subscription states onto ours.
func normalizeStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case "":
		return models.BillingStatusActive
	case models.BillingStatusActive, models.BillingStatusTrialing, models.BillingStatusPastDue,
		models.BillingStatusCanceled, models.BillingStatusPaused:
		return s
	case "cancelled", "revoked":
		return models.BillingStatusCanceled
	case "incomplete_expired", "unpaid":
		return models.BillingStatusExpired
	default:
		return models.BillingStatusIncomplete
	}
}

// envPlanTier resolves a price or product id through STRIPE_PRICE_PRO,
// STRIPE_PRICE_BUSINESS, POLAR_PRODUCT_PRO and POLAR_PRODUCT_BUSINESS.
// Each variable may hold a comma separated list.
func envPlanTier(provider, ref string) (entitlements.Tier, bool) {
	prefix := ""
	switch provider {
	case models.BillingProviderStripe:
		prefix = "STRIPE_PRICE_"
	case models.BillingProviderPolar:
		prefix = "POLAR_PRODUCT_"
	default:
		return entitlements.TierFree, false
	}
	for _, tier := range []entitlements.Tier{entitlements.TierBusiness, entitlements.TierPro} {
		for _, candidate := range strings.Split(env.GetEnv(prefix+strings.ToUpper(string(tier)), ""), ",") {
			if c := strings.TrimSpace(candidate); c != "" && c == ref {
				return tier, true
			}
		}
	}
	return entitlements.TierFree, false
}

// priceForTier is the first configured Stripe price of a tier.
func priceForTier(tier entitlements.Tier) string {
	for _, candidate := range strings.Split(env.GetEnv("STRIPE_PRICE_"+strings.ToUpper(string(tier)), ""), ",") {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return ""
}
