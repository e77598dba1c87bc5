package entitlements

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotasAreMonotonicAcrossTiers(t *testing.T) {
	for _, r := range AllResources() {
		prev, _ := LimitsFor(TierFree).Quota(r)
		for _, tier := range AllTiers()[1:] {
			cur, ok := LimitsFor(tier).Quota(r)
			require.True(t, ok)
			assert.Truef(t, cur.AtLeast(prev), "%s: %s limit %s below previous %s", r, tier, cur, prev)
			prev = cur
		}
	}
}

func TestFeatureFlagsAreNeverRevoked(t *testing.T) {
	for _, f := range AllFeatures() {
		enabled := false
		for _, tier := range AllTiers() {
			on, ok := LimitsFor(tier).Flag(f)
			require.True(t, ok)
			if enabled {
				assert.Truef(t, on, "%s revoked at tier %s", f, tier)
			}
			enabled = enabled || on
		}
	}
}

func TestResolveLimitsFallsBackToFree(t *testing.T) {
	free := ResolveLimits("free")
	for _, raw := range []string{"", "enterprise", "PRO", " pro", "premium"} {
		assert.Equal(t, free, ResolveLimits(raw), "tier %q", raw)
	}
	assert.Equal(t, TierFree, ResolveTierPtr(nil))
	business := "business"
	assert.Equal(t, TierBusiness, ResolveTierPtr(&business))
}

func TestResolveLimitsReturnsCopies(t *testing.T) {
	l := ResolveLimits("free")
	l.HasPDFExport = true
	l.MaxAssets = Unlimited()

	again := ResolveLimits("free")
	assert.False(t, again.HasPDFExport)
	assert.Equal(t, Finite(20), again.MaxAssets)
}

func TestCheckQuotaStrictLessThan(t *testing.T) {
	res, err := CheckQuota("free", ResourceAssets, 19)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, Finite(1), res.Remaining)
	assert.NoError(t, res.Err())

	res, err = CheckQuota("free", ResourceAssets, 20)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, Finite(20), res.Limit)
	assert.Equal(t, Finite(0), res.Remaining)

	qerr := res.Err()
	require.Error(t, qerr)
	assert.True(t, errors.Is(qerr, ErrQuotaExceeded))
	pe, ok := AsPolicyError(qerr)
	require.True(t, ok)
	assert.Equal(t, TierFree, pe.Tier)
	assert.Equal(t, ResourceAssets, pe.Resource)
	assert.Equal(t, int64(20), pe.Usage)
	assert.Equal(t, TierPro, pe.RequiredTier)
}

func TestCheckQuotaOverLimitClampsRemaining(t *testing.T) {
	res, err := CheckQuota("pro", ResourceUsers, 9)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, Finite(0), res.Remaining)
}

func TestCheckQuotaUnlimited(t *testing.T) {
	res, err := CheckQuota("business", ResourceAssets, 1_000_000)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.True(t, res.Limit.IsUnlimited())
	assert.True(t, res.Remaining.IsUnlimited())

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"business","resource":"maxAssets","allowed":true,"limit":"unlimited","remaining":"unlimited","usage":1000000}`, string(data))
}

func TestCheckQuotaRejectsNegativeUsage(t *testing.T) {
	for _, tier := range append([]Tier{"enterprise"}, AllTiers()...) {
		for _, r := range AllResources() {
			_, err := CheckQuota(string(tier), r, -1)
			require.Errorf(t, err, "%s/%s", tier, r)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
		}
	}
}

func TestCheckQuotaUnknownResource(t *testing.T) {
	_, err := CheckQuota("pro", Resource("maxWidgets"), 1)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestHasFeature(t *testing.T) {
	on, err := HasFeature("free", FeaturePaymentIntegration)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = HasFeature("pro", FeaturePaymentIntegration)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = HasFeature("pro", Feature("hasTeleportation"))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestRequireFeatureOrReject(t *testing.T) {
	err := RequireFeatureOrReject("free", FeatureROITracking)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFeatureNotAvailable))
	assert.False(t, errors.Is(err, ErrQuotaExceeded))

	pe, ok := AsPolicyError(err)
	require.True(t, ok)
	assert.Equal(t, TierFree, pe.Tier)
	assert.Equal(t, FeatureROITracking, pe.Feature)
	assert.Equal(t, TierPro, pe.RequiredTier)

	assert.NoError(t, RequireFeatureOrReject("pro", FeatureROITracking))
	assert.True(t, errors.Is(RequireFeatureOrReject("pro", Feature("nope")), ErrInvalidArgument))
}

func TestRequiredTier(t *testing.T) {
	assert.Equal(t, TierBusiness, RequiredTier(FeatureCustomBranding))
	assert.Equal(t, TierBusiness, RequiredTier(FeatureGrowthMetrics))
	assert.Equal(t, TierPro, RequiredTier(FeaturePDFExport))
	assert.Equal(t, Tier(""), RequiredTier(Feature("nope")))

	assert.Equal(t, TierFree, RequiredTierFor(ResourceAssets, 0))
	assert.Equal(t, TierPro, RequiredTierFor(ResourceAssets, 20))
	assert.Equal(t, TierBusiness, RequiredTierFor(ResourceAssets, 500))
}

func TestPolicyIsIdempotent(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, ResolveLimits("pro"), ResolveLimits("pro"))
		a, _ := HasFeature("business", FeatureGrowthMetrics)
		b, _ := HasFeature("business", FeatureGrowthMetrics)
		assert.Equal(t, a, b)
	}
}

func TestTierRank(t *testing.T) {
	assert.Less(t, TierFree.Rank(), TierPro.Rank())
	assert.Less(t, TierPro.Rank(), TierBusiness.Rank())
	assert.Equal(t, 0, Tier("gold").Rank())
}

func TestLimitJSON(t *testing.T) {
	var l Limit
	require.NoError(t, json.Unmarshal([]byte(`"unlimited"`), &l))
	assert.True(t, l.IsUnlimited())

	require.NoError(t, json.Unmarshal([]byte(`42`), &l))
	n, ok := l.Value()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	assert.Error(t, json.Unmarshal([]byte(`-1`), &l))
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &l))
}

func TestEnabledFeatures(t *testing.T) {
	assert.Empty(t, LimitsFor(TierFree).EnabledFeatures())
	assert.Len(t, LimitsFor(TierBusiness).EnabledFeatures(), len(AllFeatures()))
}

func TestEnumerationsAreCopies(t *testing.T) {
	got := AllTiers()
	got[0] = TierBusiness
	assert.Equal(t, TierFree, AllTiers()[0])
	assert.Equal(t, TierPro, RequiredTier(FeaturePDFExport))

	res := AllResources()
	res[0] = "maxNothing"
	assert.True(t, ResourceAssets.Valid())

	feats := AllFeatures()
	feats[0] = "hasNothing"
	assert.True(t, FeatureAdvancedReporting.Valid())
	assert.Len(t, AllFeatures(), 10)
}
