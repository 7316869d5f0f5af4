package normalize

// fields.go: ordered field candidates over loosely-typed JSON.
//
// A candidate is a key path ("fpmm", "conditionId"). Resolvers walk the
// candidates in order and return the first structurally valid value.

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

type field []string

func keys(names ...string) []field {
	out := make([]field, len(names))
	for i, n := range names {
		out[i] = field{n}
	}
	return out
}

func lookup(m map[string]any, f field) (any, bool) {
	var cur any = m
	for _, k := range f {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[k]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func firstString(m map[string]any, candidates []field) (string, bool) {
	for _, f := range candidates {
		v, ok := lookup(m, f)
		if !ok {
			continue
		}
		if s, ok := asString(v); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func firstFloat(m map[string]any, candidates []field) (float64, bool) {
	for _, f := range candidates {
		v, ok := lookup(m, f)
		if !ok {
			continue
		}
		if x, ok := asFloat(v); ok {
			return x, true
		}
	}
	return 0, false
}

func firstBool(m map[string]any, candidates []field) bool {
	for _, f := range candidates {
		if v, ok := lookup(m, f); ok && asBool(v) {
			return true
		}
	}
	return false
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err = strconv.ParseFloat(s, 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	}
	return false
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asList also accepts JSON-encoded arrays inside strings, which Gamma uses
// for outcomes and outcomePrices.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if !strings.HasPrefix(s, "[") {
			return nil, false
		}
		var out []any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// sortedKeys gives deterministic iteration over a map.
func sortedKeys(m map[string]any) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// records extracts a list of objects from a payload that is either a list or
// an object wrapping one under any of the given keys.
func records(payload any, wrappers ...string) ([]any, bool) {
	if list, ok := asList(payload); ok {
		return list, true
	}
	m, ok := asMap(payload)
	if !ok {
		return nil, false
	}
	for _, k := range wrappers {
		if list, ok := asList(m[k]); ok {
			return list, true
		}
	}
	return nil, false
}
