package entitlements

// QuotaResult is the outcome of a pre-creation quota check.
type QuotaResult struct {
	Tier      Tier     `json:"tier"`
	Resource  Resource `json:"resource"`
	Allowed   bool     `json:"allowed"`
	Limit     Limit    `json:"limit"`
	Remaining Limit    `json:"remaining"`
	Usage     int64    `json:"usage"`
}

// Err returns a QuotaExceeded error when the check failed, nil otherwise.
func (r QuotaResult) Err() error {
	if r.Allowed {
		return nil
	}
	return &PolicyError{
		Kind:         KindQuotaExceeded,
		Tier:         r.Tier,
		Resource:     r.Resource,
		Limit:        r.Limit,
		Usage:        r.Usage,
		RequiredTier: RequiredTierFor(r.Resource, r.Usage),
	}
}

// ResolveLimits returns the limits for a stored tier value. Unknown or empty
// values resolve to the free tier.
func ResolveLimits(tier string) TierLimits {
	return tierTable[ResolveTier(tier)]
}

// LimitsFor is ResolveLimits for an already typed tier.
func LimitsFor(tier Tier) TierLimits {
	return ResolveLimits(string(tier))
}

// HasFeature reports whether feature is enabled for tier.
func HasFeature(tier string, feature Feature) (bool, error) {
	on, ok := ResolveLimits(tier).Flag(feature)
	if !ok {
		return false, invalidArgument("unknown feature %q", feature)
	}
	return on, nil
}

// CheckQuota decides whether one more resource may be created given the
// current usage. Callers must run it before the create.
func CheckQuota(tier string, resource Resource, currentUsage int64) (QuotaResult, error) {
	limits := ResolveLimits(tier)
	limit, ok := limits.Quota(resource)
	if !ok {
		return QuotaResult{}, invalidArgument("unknown resource %q", resource)
	}
	if currentUsage < 0 {
		return QuotaResult{}, invalidArgument("negative usage %d for %s", currentUsage, resource)
	}
	return QuotaResult{
		Tier:      limits.Tier,
		Resource:  resource,
		Allowed:   limit.Allows(currentUsage),
		Limit:     limit,
		Remaining: limit.Sub(currentUsage),
		Usage:     currentUsage,
	}, nil
}

// RequireFeatureOrReject returns nil when feature is enabled for tier and a
// FeatureNotAvailable error otherwise.
func RequireFeatureOrReject(tier string, feature Feature) error {
	on, err := HasFeature(tier, feature)
	if err != nil {
		return err
	}
	if on {
		return nil
	}
	return &PolicyError{
		Kind:         KindFeatureNotAvailable,
		Tier:         ResolveTier(tier),
		Feature:      feature,
		RequiredTier: RequiredTier(feature),
	}
}

// RequiredTier returns the lowest tier that enables feature. Unknown
// features yield the empty tier.
func RequiredTier(feature Feature) Tier {
	for _, t := range tiers {
		if on, ok := tierTable[t].Flag(feature); ok && on {
			return t
		}
	}
	return ""
}

// RequiredTierFor returns the lowest tier that admits one more resource at
// the given usage.
func RequiredTierFor(resource Resource, usage int64) Tier {
	for _, t := range tiers {
		if limit, ok := tierTable[t].Quota(resource); ok && limit.Allows(usage) {
			return t
		}
	}
	return ""
}
