package entitlements

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const unlimitedLabel = "unlimited"

// Limit is either a finite non-negative count or unlimited.
// The zero value is Finite(0).
type Limit struct {
	n         int64
	unlimited bool
}

// Finite returns a finite limit. Negative values panic since the table is
// static and a negative quota is a programming error.
func Finite(n int64) Limit {
	if n < 0 {
		panic(fmt.Sprintf("entitlements: negative limit %d", n))
	}
	return Limit{n: n}
}

// Unlimited returns the unlimited limit.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// IsUnlimited reports whether l has no upper bound.
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the finite bound. ok is false for unlimited limits.
func (l Limit) Value() (n int64, ok bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// Allows reports whether one more item fits when usage items already exist.
func (l Limit) Allows(usage int64) bool {
	return l.unlimited || usage < l.n
}

// Sub returns the remaining headroom after usage, never below zero.
func (l Limit) Sub(usage int64) Limit {
	if l.unlimited {
		return l
	}
	if usage >= l.n {
		return Limit{}
	}
	return Limit{n: l.n - usage}
}

// AtLeast reports whether l >= other, treating unlimited as the maximum.
func (l Limit) AtLeast(other Limit) bool {
	switch {
	case l.unlimited:
		return true
	case other.unlimited:
		return false
	default:
		return l.n >= other.n
	}
}

func (l Limit) String() string {
	if l.unlimited {
		return unlimitedLabel
	}
	return strconv.FormatInt(l.n, 10)
}

// MarshalJSON encodes finite limits as numbers and unlimited as "unlimited".
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return json.Marshal(unlimitedLabel)
	}
	return json.Marshal(l.n)
}

// UnmarshalJSON accepts a non-negative number or the string "unlimited".
func (l *Limit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != unlimitedLabel {
			return fmt.Errorf("entitlements: invalid limit %q", s)
		}
		*l = Unlimited()
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("entitlements: invalid limit: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("entitlements: negative limit %d", n)
	}
	*l = Finite(n)
	return nil
}
