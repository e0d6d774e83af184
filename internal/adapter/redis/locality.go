// Package redis shares resolved locality names between service instances.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/observability"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "beacon:locality:"

// Client is the subset of *goredis.Client used here.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// LocalityCache is a read-through Redis tier in front of a LocalityLookup.
// Redis errors are logged and bypassed; they never fail a lookup.
type LocalityCache struct {
	client  Client
	inner   domain.LocalityLookup
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewLocalityCache creates a Redis-backed lookup decorator.
func NewLocalityCache(client Client, inner domain.LocalityLookup, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *LocalityCache {
	return &LocalityCache{client: client, inner: inner, ttl: ttl, metrics: metrics, logger: logger}
}

// NewClient connects to addr and pings it. A failed ping is logged, not fatal.
func NewClient(ctx context.Context, addr string, logger *slog.Logger) *goredis.Client {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed", "addr", addr, "error", err)
	}
	return rdb
}

func (c *LocalityCache) LookupLocalityName(ctx context.Context, id string) (string, error) {
	key := keyPrefix + id

	name, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil && name != "":
		c.metrics.LocalityCache.WithLabelValues("redis", "hit").Inc()
		return name, nil
	case err == nil, errors.Is(err, goredis.Nil):
		c.metrics.LocalityCache.WithLabelValues("redis", "miss").Inc()
	default:
		c.metrics.LocalityCache.WithLabelValues("redis", "error").Inc()
		c.logger.Debug("redis get failed", "key", key, "error", err)
	}

	name, err = c.inner.LookupLocalityName(ctx, id)
	if err != nil || name == "" {
		return name, err
	}
	if err := c.client.Set(ctx, key, name, c.ttl).Err(); err != nil {
		c.logger.Debug("redis set failed", "key", key, "error", err)
	}
	return name, nil
}
