package locality

import (
	"context"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/lru"
	"github.com/couchcryptid/beacon-outage-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedLookup wraps a LocalityLookup with an in-memory LRU cache.
type CachedLookup struct {
	inner   domain.LocalityLookup
	cache   *lru.Cache[string, string]
	metrics *observability.Metrics
}

// NewCachedLookup creates a cache decorator around a lookup. Entries expire
// after ttl so renamed barangays are picked up eventually.
func NewCachedLookup(inner domain.LocalityLookup, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedLookup {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedLookup{
		inner:   inner,
		cache:   lru.New[string, string](maxEntries, lru.WithTTL(ttl), lru.WithClock(clock)),
		metrics: metrics,
	}
}

func (c *CachedLookup) LookupLocalityName(ctx context.Context, id string) (string, error) {
	if name, ok := c.cache.Get(id); ok {
		c.metrics.LocalityCache.WithLabelValues("memory", "hit").Inc()
		return name, nil
	}
	c.metrics.LocalityCache.WithLabelValues("memory", "miss").Inc()

	name, err := c.inner.LookupLocalityName(ctx, id)
	if err != nil {
		return "", err
	}
	// Only cache non-empty names so a transient miss is retried.
	if name != "" {
		c.cache.Put(id, name)
	}
	return name, nil
}
