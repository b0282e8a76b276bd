package market

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseNumber parses a numeric string as returned by providers. Surrounding whitespace
// and a trailing percent sign are ignored. Placeholders such as "", "None", "-" or
// "N/A" report ok == false with no error.
func ParseNumber(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	switch strings.ToLower(s) {
	case "", "none", "-", "n/a", "null":
		return 0, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false, fmt.Errorf("parsing %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, true, nil
}

// OptionalNumber is ParseNumber for fields that may be absent. Unparseable and
// non-finite values are treated as absent.
func OptionalNumber(s string) *float64 {
	v, ok, err := ParseNumber(s)
	if err != nil || !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NonZero returns nil for providers that use zero to mean "not reported".
func NonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

// EpochTime converts a Unix timestamp in seconds, milliseconds or nanoseconds to UTC.
// Non-positive values return fallback.
func EpochTime(v int64, fallback time.Time) time.Time {
	switch {
	case v <= 0:
		return fallback
	case v > 1_000_000_000_000_000: // ns
		return time.Unix(0, v).UTC()
	case v > 1_000_000_000_000: // ms
		return time.UnixMilli(v).UTC()
	default:
		return time.Unix(v, 0).UTC()
	}
}

// ParseTimestamp accepts either a trading day (2006-01-02) or an RFC 3339 timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
