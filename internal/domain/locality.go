package domain

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// NotSet is the literal profile value meaning the user chose no locality.
const NotSet = "Not set"

// LocalityLookup resolves a locality id to its display name.
type LocalityLookup interface {
	LookupLocalityName(ctx context.Context, id string) (string, error)
}

// ProfileLocality is the raw barangay column of a profile.
type ProfileLocality struct {
	Value string
	Valid bool
}

// ResolutionOutcome says how a locality was (or was not) resolved.
type ResolutionOutcome string

const (
	OutcomeResolved      ResolutionOutcome = "resolved"
	OutcomeVerbatim      ResolutionOutcome = "verbatim"
	OutcomeUnset         ResolutionOutcome = "unset"
	OutcomeLookupFailed  ResolutionOutcome = "lookup_failed"
	OutcomeNotFound      ResolutionOutcome = "not_found"
	OutcomeProfileFailed ResolutionOutcome = "profile_failed"
	OutcomeGuest         ResolutionOutcome = "guest"
)

// LocalityContext is a viewer's locality for one session. Resolved is either
// empty (no locality) or a display name ready for matching.
type LocalityContext struct {
	Raw      string            `json:"raw,omitempty"`
	Resolved string            `json:"resolved,omitempty"`
	Outcome  ResolutionOutcome `json:"-"`
}

// Name returns the resolved display name, or "" when there is none.
func (c LocalityContext) Name() string { return c.Resolved }

// IsSet reports whether relevance filtering applies.
func (c LocalityContext) IsSet() bool { return c.Resolved != "" }

// Failed reports whether resolution degraded because a read failed, as
// opposed to the viewer having no usable locality.
func (c LocalityContext) Failed() bool {
	return c.Outcome == OutcomeLookupFailed || c.Outcome == OutcomeProfileFailed
}

// ResolveLocality turns a stored profile value into a LocalityContext.
// Lookup failures are logged and degrade to no locality; they are never
// returned to the caller.
func ResolveLocality(ctx context.Context, p ProfileLocality, lookup LocalityLookup, logger *slog.Logger) LocalityContext {
	raw := strings.TrimSpace(p.Value)
	lc := LocalityContext{Raw: raw}
	if !p.Valid || raw == "" || strings.EqualFold(raw, NotSet) {
		lc.Outcome = OutcomeUnset
		return lc
	}

	id, numeric := localityID(raw)
	if !numeric {
		lc.Resolved = raw
		lc.Outcome = OutcomeVerbatim
		return lc
	}

	if lookup == nil {
		lc.Outcome = OutcomeLookupFailed
		return lc
	}
	name, err := lookup.LookupLocalityName(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		lc.Outcome = OutcomeNotFound
		return lc
	case err != nil:
		logger.Warn("locality lookup failed", "locality_id", id, "error", err)
		lc.Outcome = OutcomeLookupFailed
		return lc
	}
	if name = strings.TrimSpace(name); name == "" {
		lc.Outcome = OutcomeNotFound
		return lc
	}
	lc.Resolved = name
	lc.Outcome = OutcomeResolved
	return lc
}

// localityID reports whether s parses entirely as a finite number, returning
// the id to look up. Integral values are normalised, so "12.0" becomes "12".
func localityID(s string) (string, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10), true
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}
