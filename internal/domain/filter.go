package domain

import (
	"strings"
	"time"
)

// statusSentinels are filter values that mean "any status".
var statusSentinels = map[string]struct{}{
	"":              {},
	"all status":    {},
	"select status": {},
}

// FilterOptions holds the interactive predicates. Zero values disable a
// predicate.
type FilterOptions struct {
	SearchTerm string
	ExactDay   *time.Time
	Status     string
}

// IsStatusSentinel reports whether a status filter value means "no filter".
func IsStatusSentinel(status string) bool {
	_, ok := statusSentinels[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// Filter returns the records satisfying every active predicate, preserving
// input order. It has no state and may be re-run on the full set at will.
func Filter(records []OutageRecord, opts FilterOptions, loc *time.Location) []OutageRecord {
	term := strings.ToLower(strings.TrimSpace(opts.SearchTerm))
	status := strings.TrimSpace(opts.Status)
	if IsStatusSentinel(status) {
		status = ""
	}

	out := make([]OutageRecord, 0, len(records))
	for _, r := range records {
		if term != "" && !matchesSearch(r, term) {
			continue
		}
		if opts.ExactDay != nil && (r.CreatedAt.IsZero() || !SameDay(r.CreatedAt, *opts.ExactDay, loc)) {
			continue
		}
		if status != "" && !strings.EqualFold(strings.TrimSpace(r.Status), status) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// matchesSearch tests a lowercased term against the searchable fields.
func matchesSearch(r OutageRecord, term string) bool {
	for _, f := range []string{r.FeederName, r.PrimaryLocality, r.Description, r.Location, r.Type, r.Cause} {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	for _, area := range r.AffectedLocalities {
		if strings.Contains(strings.ToLower(area), term) {
			return true
		}
	}
	return false
}
