package entitlements

import (
	"errors"
	"fmt"
)

// Kind classifies policy errors.
type Kind string

const (
	KindInvalidArgument     Kind = "invalid_argument"
	KindQuotaExceeded       Kind = "quota_exceeded"
	KindFeatureNotAvailable Kind = "feature_not_available"
)

var (
	ErrInvalidArgument     = errors.New("entitlements: invalid argument")
	ErrQuotaExceeded       = errors.New("entitlements: quota exceeded")
	ErrFeatureNotAvailable = errors.New("entitlements: feature not available")
)

// PolicyError carries the context a caller needs to render an upgrade prompt
// or a 400 response.
type PolicyError struct {
	Kind         Kind
	Tier         Tier
	Feature      Feature
	Resource     Resource
	Limit        Limit
	Usage        int64
	RequiredTier Tier
	Msg          string
}

func (e *PolicyError) Error() string {
	switch e.Kind {
	case KindQuotaExceeded:
		return fmt.Sprintf("quota exceeded for %s on tier %s: usage %d, limit %s", e.Resource, e.Tier, e.Usage, e.Limit)
	case KindFeatureNotAvailable:
		return fmt.Sprintf("feature %s is not available on tier %s", e.Feature, e.Tier)
	default:
		return "invalid argument: " + e.Msg
	}
}

// Is lets errors.Is match the kind sentinels.
func (e *PolicyError) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrQuotaExceeded:
		return e.Kind == KindQuotaExceeded
	case ErrFeatureNotAvailable:
		return e.Kind == KindFeatureNotAvailable
	}
	return false
}

// AsPolicyError unwraps err into a *PolicyError.
func AsPolicyError(err error) (*PolicyError, bool) {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func invalidArgument(format string, args ...any) *PolicyError {
	return &PolicyError{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}
