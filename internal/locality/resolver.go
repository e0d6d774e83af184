// Package locality resolves a viewer's home locality from their profile.
package locality

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/observability"
)

// ProfileReader loads the stored barangay value of a user profile.
type ProfileReader interface {
	ProfileLocality(ctx context.Context, userID string) (domain.ProfileLocality, error)
}

// Resolver turns user ids into locality contexts. It never returns an error:
// every failure degrades to "no locality".
type Resolver struct {
	profiles ProfileReader
	lookup   domain.LocalityLookup
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(profiles ProfileReader, lookup domain.LocalityLookup, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{profiles: profiles, lookup: lookup, metrics: metrics, logger: logger}
}

// Resolve returns the locality for userID. An empty id is a guest.
func (r *Resolver) Resolve(ctx context.Context, userID string) domain.LocalityContext {
	if userID == "" {
		return r.record(domain.LocalityContext{Outcome: domain.OutcomeGuest})
	}

	profile, err := r.profiles.ProfileLocality(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return r.record(domain.LocalityContext{Outcome: domain.OutcomeUnset})
	case err != nil:
		r.logger.Warn("profile read failed", "user_id", userID, "error", err)
		return r.record(domain.LocalityContext{Outcome: domain.OutcomeProfileFailed})
	}

	lc := domain.ResolveLocality(ctx, profile, r.lookup, r.logger)
	r.logger.Debug("locality resolved", "user_id", userID, "raw", lc.Raw, "resolved", lc.Resolved, "outcome", lc.Outcome)
	return r.record(lc)
}

func (r *Resolver) record(lc domain.LocalityContext) domain.LocalityContext {
	r.metrics.LocalityResolutions.WithLabelValues(string(lc.Outcome)).Inc()
	return lc
}
