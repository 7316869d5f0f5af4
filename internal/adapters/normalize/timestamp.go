package normalize

import (
	"strings"
	"time"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime accepts epoch seconds, epoch milliseconds (> 1e12) or ISO-8601.
// Anything else is reported as absent, never as an error.
func ParseTime(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		if _, numeric := asFloat(s); !numeric {
			return parseISO(s)
		}
	}
	f, ok := asFloat(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	if f > 1e12 {
		f /= 1000
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), true
}

func parseISO(s string) (time.Time, bool) {
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstTime(m map[string]any, candidates []field) time.Time {
	for _, f := range candidates {
		v, ok := lookup(m, f)
		if !ok {
			continue
		}
		if t, ok := ParseTime(v); ok {
			return t
		}
	}
	return time.Time{}
}
