package model

import (
	"strconv"
	"strings"
)

// Record is one recommendation exactly as the model emitted it, before any
// typing. Accessors treat a missing or mistyped key as absent instead of
// failing: models are loose about types ("6.5%" for a coupon, 305 for a ticker).
type Record map[string]any

// String returns the value at key as a trimmed string. Numbers are formatted;
// anything else (objects, arrays, null) reads as "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Float returns the value at key as a number, or nil when there is none.
// Strings like "6.5", "6,5" and "6.5%" are accepted.
func (r Record) Float(key string) *float64 {
	switch v := r[key].(type) {
	case float64:
		return &v
	case string:
		s := strings.TrimSpace(v)
		s = strings.TrimSuffix(s, "%")
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// Strings returns the list at key. A lone string becomes a one-element list;
// non-string items in a list are skipped.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return nil
}
