package reporting

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("reporting: invalid date range")

// Range is a half-open [From, To) window in UTC.
type Range struct {
	From time.Time
	To   time.Time
}

// DefaultRange covers the current month and the eleven before it.
func DefaultRange(now time.Time) Range {
	end := monthStart(now).AddDate(0, 1, 0)
	return Range{From: end.AddDate(0, -12, 0), To: end}
}

// ParseRange reads from/to as YYYY-MM-DD. To is inclusive on input. Empty
// values fall back to DefaultRange.
func ParseRange(from, to string, now time.Time) (Range, error) {
	r := DefaultRange(now)
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return r, fmt.Errorf("%w: from %q", ErrInvalidRange, from)
		}
		r.From = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return r, fmt.Errorf("%w: to %q", ErrInvalidRange, to)
		}
		r.To = t.AddDate(0, 0, 1)
	}
	if !r.To.After(r.From) {
		return r, fmt.Errorf("%w: to before from", ErrInvalidRange)
	}
	if r.To.Sub(r.From) > 5*366*24*time.Hour {
		return r, fmt.Errorf("%w: range longer than five years", ErrInvalidRange)
	}
	return r, nil
}

// Custom reports whether either bound was set by the caller.
func Custom(from, to string) bool {
	return from != "" || to != ""
}

func (r Range) key() string {
	return r.From.Format(dateLayout) + ":" + r.To.Format(dateLayout)
}

// Months lists the first day of every month touched by the range.
func (r Range) Months() []time.Time {
	var out []time.Time
	for m := monthStart(r.From); m.Before(r.To); m = m.AddDate(0, 1, 0) {
		out = append(out, m)
	}
	return out
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
