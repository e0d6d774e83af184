package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/beacon-outage-service/internal/changefeed"
	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/observability"
)

// Subscriptions holds at most one change subscription per view.
type Subscriptions struct {
	feed    ChangeFeed
	metrics *observability.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	active map[domain.ViewKind]changefeed.Subscription
}

// NewSubscriptions creates an empty subscription set over feed.
func NewSubscriptions(feed ChangeFeed, metrics *observability.Metrics, logger *slog.Logger) *Subscriptions {
	return &Subscriptions{
		feed:    feed,
		metrics: metrics,
		logger:  logger,
		active:  make(map[domain.ViewKind]changefeed.Subscription),
	}
}

// Subscribe returns the view's subscription, opening one if none is active.
// Calling it again while one is active returns the same subscription.
func (s *Subscriptions) Subscribe(ctx context.Context, view domain.ViewKind) (changefeed.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.active[view]; ok {
		return sub, nil
	}
	sub, err := s.feed.Subscribe(ctx, string(view), domain.ViewTables(view))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", view, err)
	}
	s.active[view] = sub
	s.metrics.SubscriptionsActive.Inc()
	return sub, nil
}

// Active reports whether the view has an open subscription.
func (s *Subscriptions) Active(view domain.ViewKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[view]
	return ok
}

// Release closes and forgets the view's subscription. Releasing a view with
// no subscription is a no-op.
func (s *Subscriptions) Release(view domain.ViewKind) error {
	s.mu.Lock()
	sub, ok := s.active[view]
	if ok {
		delete(s.active, view)
		s.metrics.SubscriptionsActive.Dec()
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := sub.Close(); err != nil {
		return fmt.Errorf("release %s: %w", view, err)
	}
	return nil
}

// ReleaseAll releases every subscription.
func (s *Subscriptions) ReleaseAll() {
	var errs []error
	for _, v := range domain.ViewKinds() {
		if err := s.Release(v); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("release subscriptions", "error", err)
	}
}

// clearFailed drops a failed subscription so the next Subscribe opens a new
// one. A subscription that was already replaced is only closed.
func (s *Subscriptions) clearFailed(view domain.ViewKind, sub changefeed.Subscription) {
	s.mu.Lock()
	if cur, ok := s.active[view]; ok && cur == sub {
		delete(s.active, view)
		s.metrics.SubscriptionsActive.Dec()
	}
	s.mu.Unlock()

	if err := sub.Close(); err != nil {
		s.logger.Warn("close failed subscription", "view", view, "error", err)
	}
}
