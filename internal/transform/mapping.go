package transform

import "strings"

// standardWitNames is the canonical name -> mapping id table the
// projects/issue-types transformer resolves wits_mapping_id through
// (spec.md §4.9.1: "Resolve wits_mapping_id by case-insensitive name
// lookup"). It is a first-class configuration structure, not a reflection
// trick, per spec.md §9's design note on dynamic provider fields.
var standardWitNames = map[string]string{
	"story":    "story",
	"bug":      "bug",
	"task":     "task",
	"subtask":  "subtask",
	"sub-task": "subtask",
	"epic":     "epic",
}

// standardStatusNames is the equivalent lookup table for status_mapping_id.
var standardStatusNames = map[string]string{
	"to do":       "to_do",
	"open":        "to_do",
	"backlog":     "to_do",
	"in progress": "in_progress",
	"in review":   "in_review",
	"done":        "done",
	"closed":      "done",
	"resolved":    "done",
}

func resolveMappingID(table map[string]string, name string) *string {
	id, ok := table[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil
	}
	return &id
}

// resolveWitMappingID resolves a provider issue-type's original_name to a
// mapping id by case-insensitive lookup, or nil if it names nothing
// standard.
func resolveWitMappingID(name string) *string {
	return resolveMappingID(standardWitNames, name)
}

// resolveStatusMappingID resolves a provider status's original_name to a
// mapping id by case-insensitive lookup.
func resolveStatusMappingID(name string) *string {
	return resolveMappingID(standardStatusNames, name)
}

// normalizeCategory lowercases a provider status-category name into one of
// the three buckets the workflow metrics engine understands (spec.md
// §4.10). Anything unrecognized passes through lowercased so it is at
// least stable and comparable, even though it will not match any of the
// engine's category switches.
func normalizeCategory(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
