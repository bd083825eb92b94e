// Package transform implements C8 (Transform Dispatcher) and C9 (Entity
// Transformers): consumes raw payloads staged by internal/extract,
// resolves cross-entity references, bulk-upserts into the relational
// store, computes derived workflow metrics, and publishes
// completion/embedding signals (spec.md §4.8-§4.9).
package transform

import (
	"strings"
)

// providerValue models spec.md §9's "dynamic dict-of-anything field"
// design note as a tagged variant with explicit extractors, rather than a
// reflection trick: a custom field or ADF description payload is always
// one of scalar, option-object, user-object, or array, and each has one
// well-defined flattening into a display string.
type providerValue struct {
	raw any
}

func newProviderValue(v any) providerValue { return providerValue{raw: v} }

// isEmpty implements the §8 boundary behavior table for the `development`
// boolean: "" , "{}", "[]", nil, [], {} -> false; any other non-null
// scalar, non-empty dict, or non-empty list -> true.
func (p providerValue) isEmpty() bool {
	switch v := p.raw.(type) {
	case nil:
		return true
	case string:
		return v == "" || v == "{}" || v == "[]"
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// displayString flattens a provider value into its human-readable form:
// dict -> name/value/displayName; array -> comma-joined display values of
// each element; scalar -> its string form.
func (p providerValue) displayString() string {
	switch v := p.raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return trimFloat(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case map[string]any:
		for _, key := range []string{"displayName", "name", "value"} {
			if s, ok := v[key].(string); ok {
				return s
			}
		}
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := newProviderValue(item).displayString(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// asFloat coerces a provider value to *float64, per the §8 boundary case
// for story_points: "5.5" -> 5.5; "abc" -> nil; absent -> caller leaves
// the existing value unchanged.
func (p providerValue) asFloat() *float64 {
	switch v := p.raw.(type) {
	case float64:
		f := v
		return &f
	case string:
		f, err := parseFloat(v)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
