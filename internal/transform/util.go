package transform

import (
	"math"
	"strconv"
	"strings"
)

// parseFloat parses a provider string field into a float64 for the
// story_points boundary case from spec.md §8: "5.5" -> 5.5, "abc" -> error.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// trimFloat renders a float64 without a trailing ".0" for whole numbers,
// matching how the provider's own UI displays numeric fields.
func trimFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
