package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Contains(t, cfg.DatabaseURL, "localhost:5432")
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.False(t, cfg.DBMigrate)
	assert.Equal(t, ChangeFeedPostgres, cfg.ChangeFeed)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "outage-changes", cfg.KafkaChangeTopic)
	assert.Equal(t, "beacon-outage-service", cfg.KafkaGroupID)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 500, cfg.LocalityCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.LocalityCacheTTL)
	assert.Equal(t, "Asia/Manila", cfg.Timezone)
	assert.Equal(t, "Asia/Manila", cfg.Location.String())
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.Equal(t, "Baguio City, Philippines", cfg.MapboxRegion)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/outages")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DB_MIGRATE", "true")
	t.Setenv("CHANGE_FEED", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_CHANGE_TOPIC", "cdc.announcements")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOCALITY_CACHE_SIZE", "50")
	t.Setenv("LOCALITY_CACHE_TTL", "1h")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("MAPBOX_REGION", "Benguet")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "postgres://u:p@db:5432/outages", cfg.DatabaseURL)
	assert.Equal(t, 4, cfg.DBMaxOpenConns)
	assert.True(t, cfg.DBMigrate)
	assert.Equal(t, ChangeFeedKafka, cfg.ChangeFeed)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "cdc.announcements", cfg.KafkaChangeTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 50, cfg.LocalityCacheSize)
	assert.Equal(t, time.Hour, cfg.LocalityCacheTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.Equal(t, "Benguet", cfg.MapboxRegion)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"DB_MAX_OPEN_CONNS", "0", "DB_MAX_OPEN_CONNS"},
		{"DB_MAX_OPEN_CONNS", "many", "DB_MAX_OPEN_CONNS"},
		{"LOCALITY_CACHE_SIZE", "-5", "LOCALITY_CACHE_SIZE"},
		{"LOCALITY_CACHE_TTL", "soon", "LOCALITY_CACHE_TTL"},
		{"TIMEZONE", "Mars/Olympus_Mons", "TIMEZONE"},
		{"CHANGE_FEED", "carrier-pigeon", "CHANGE_FEED"},
		{"MAPBOX_TIMEOUT", "bad", "MAPBOX_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_KafkaFeedRequiresTopic(t *testing.T) {
	t.Setenv("CHANGE_FEED", "kafka")
	t.Setenv("KAFKA_CHANGE_TOPIC", "")

	// An empty value falls back to the default topic.
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "outage-changes", cfg.KafkaChangeTopic)
}

func TestLoad_NoChangeFeed(t *testing.T) {
	t.Setenv("CHANGE_FEED", "none")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ChangeFeedNone, cfg.ChangeFeed)
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
