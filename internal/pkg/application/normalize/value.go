package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// GenericModel is the model label used when no model field can be
// resolved from a raw node.
const GenericModel = "DJI Device"

func asObject(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok
}

func asArray(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

func hasKey(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

func hasAnyKey(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if hasKey(obj, k) {
			return true
		}
	}
	return false
}

// numberOf coerces a single raw value to a finite float64.
func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// firstNumber tries each candidate key in priority order and returns the
// first value that parses to a finite number, else 0.
func firstNumber(obj map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if f, ok := numberOf(v); ok {
				return f
			}
		}
	}
	return 0
}

// truthy implements the tri-state online check: a raw value counts as
// true iff it is boolean true, numeric 1 or the string "true".
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 1
	case string:
		return t == "true"
	}
	return false
}

func stringOf(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		trimmed := strings.TrimSpace(s)
		return trimmed, trimmed != ""
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s, ok := stringOf(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

var (
	numericIDPattern = regexp.MustCompile(`^\d+$`)
	dashedIDPattern  = regexp.MustCompile(`^\d+-\d+-\d+$`)
)

// isGenericID reports whether a string is a generated system id rather
// than a name a human chose, e.g. "42" or "0-100-1".
func isGenericID(s string) bool {
	return numericIDPattern.MatchString(s) || dashedIDPattern.MatchString(s)
}

func usableName(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != "null" && !isGenericID(s)
}

// displayName picks the best human-readable name from the candidate name
// fields, trying nested config objects last. The second return value is
// false when no candidate survives and the caller must synthesize one.
func displayName(obj map[string]any) (string, bool) {
	for _, k := range nameKeys {
		if s, ok := obj[k].(string); ok && usableName(s) {
			return strings.TrimSpace(s), true
		}
	}
	for _, ck := range configKeys {
		if cfg, ok := asObject(obj[ck]); ok {
			if s, ok := cfg["name"].(string); ok && usableName(s) {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// modelLabel resolves a model label from a raw value: strings pass
// through, objects give up a name/key/model field or are serialized as a
// last resort.
func modelLabel(v any, fallback string) string {
	switch m := v.(type) {
	case string:
		if s := strings.TrimSpace(m); s != "" {
			return s
		}
	case map[string]any:
		for _, k := range []string{"name", "key", "model"} {
			if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		if b, err := json.Marshal(m); err == nil {
			return string(b)
		}
	}
	return fallback
}
