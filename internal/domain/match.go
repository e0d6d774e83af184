package domain

import "strings"

// MatchMode selects the containment direction used by IsRelevant.
type MatchMode int

const (
	// MatchStrict requires the target to be a substring of the record field.
	MatchStrict MatchMode = iota
	// MatchBidirectional also accepts a record field contained in the target.
	MatchBidirectional
)

// IsRelevant reports whether a record concerns the target locality. An empty
// target always yields false, signalling that no locality context exists.
func IsRelevant(r OutageRecord, target string, mode MatchMode) bool {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return false
	}
	if containsLocality(r.PrimaryLocality, target, mode) {
		return true
	}
	for _, area := range r.AffectedLocalities {
		if containsLocality(area, target, mode) {
			return true
		}
	}
	return false
}

// containsLocality matches one field against an already lowercased target.
// Empty fields never match.
func containsLocality(field, target string, mode MatchMode) bool {
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" {
		return false
	}
	if strings.Contains(field, target) {
		return true
	}
	return mode == MatchBidirectional && strings.Contains(target, field)
}
