package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/beacon-outage-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/beacon-outage-service/internal/adapter/kafka"
	"github.com/couchcryptid/beacon-outage-service/internal/adapter/mapbox"
	"github.com/couchcryptid/beacon-outage-service/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/beacon-outage-service/internal/adapter/redis"
	"github.com/couchcryptid/beacon-outage-service/internal/api"
	"github.com/couchcryptid/beacon-outage-service/internal/config"
	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/locality"
	"github.com/couchcryptid/beacon-outage-service/internal/observability"
	"github.com/couchcryptid/beacon-outage-service/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DBMigrate {
		if err := postgres.RunMigrations(ctx, db); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}
	store := postgres.NewStore(db)

	// Locality names: in-process LRU, then the optional shared Redis tier,
	// then the barangays table.
	var lookup domain.LocalityLookup = store
	if cfg.RedisAddr != "" {
		rdb := redisadapter.NewClient(ctx, cfg.RedisAddr, logger)
		defer rdb.Close()
		lookup = redisadapter.NewLocalityCache(rdb, store, cfg.LocalityCacheTTL, metrics, logger)
		logger.Info("redis locality cache enabled", "addr", cfg.RedisAddr)
	}
	clock := clockwork.NewRealClock()
	lookup = locality.NewCachedLookup(lookup, cfg.LocalityCacheSize, cfg.LocalityCacheTTL, clock, metrics)
	resolver := locality.NewResolver(store, lookup, metrics, logger)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	var opts []pipeline.Option
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		opts = append(opts, pipeline.WithCriteria(domain.ViewMap, pipeline.MapCriteria(true)))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}
	transformer := pipeline.NewTransformer(geocoder, cfg.MapboxRegion, logger)

	var feed pipeline.ChangeFeed
	switch cfg.ChangeFeed {
	case config.ChangeFeedPostgres:
		feed = postgres.NewListener(cfg.DatabaseURL, logger)
	case config.ChangeFeedKafka:
		feed = kafkaadapter.NewChangeFeed(cfg, logger)
	}
	logger.Info("change feed selected", "feed", cfg.ChangeFeed)

	p := pipeline.New(store, transformer, feed, logger, metrics, opts...)
	sessions := pipeline.NewSessions(resolver, cfg.LocalityCacheSize, cfg.LocalityCacheTTL, clock)

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(p, store, sessions, cfg.Location, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, api.NewRouter(handler, logger), logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start view pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before the shutdown timeout")
	}

	logger.Info("shutdown complete")
}
