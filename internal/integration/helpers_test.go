//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/adapter/postgres"
	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	irisanUser  = "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0001"
	loakanUser  = "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0002"
	unsetUser   = "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0003"
	fixturePref = "0b5c6a52-1d1a-4e57-9d8e-0000000000"
)

var fixtureBarangays = []string{
	"Irisan", "Loakan Proper", "Kabayanihan", "Session Road Area", "Pinsao Proper", "Camp 7", "Upper Irisan",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("beacon-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startPostgres runs a database container and returns its DSN.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("beacon"),
		tcpostgres.WithUsername("beacon"),
		tcpostgres.WithPassword("beacon"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// openStore connects to dsn and applies the schema.
func openStore(ctx context.Context, t *testing.T, dsn string) *postgres.Store {
	t.Helper()
	db, err := postgres.Open(ctx, dsn, 4, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, postgres.RunMigrations(ctx, db))
	return postgres.NewStore(db)
}

func loadMockData(t *testing.T) []domain.RawRecord {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", "announcements.json"))
	require.NoError(t, err)

	var rows []domain.RawRecord
	require.NoError(t, json.Unmarshal(data, &rows))
	return rows
}

// seedFixture loads the mock announcements, barangays, profiles and one
// report into the store.
func seedFixture(ctx context.Context, t *testing.T, store *postgres.Store) {
	t.Helper()
	require.NoError(t, store.SaveLocalities(ctx, fixtureBarangays))
	require.NoError(t, store.SaveProfile(ctx, irisanUser, "1"))
	require.NoError(t, store.SaveProfile(ctx, loakanUser, "Loakan Proper"))
	require.NoError(t, store.SaveProfile(ctx, unsetUser, "Not set"))

	rows := loadMockData(t)
	items := make([]domain.Announcement, len(rows))
	for i, raw := range rows {
		r := domain.NormalizeRecord(raw, time.UTC)
		var images []string
		if r.ImageURL != "" {
			images = []string{r.ImageURL}
		}
		items[i] = domain.NewAnnouncement(r, images)
	}
	require.NoError(t, store.SaveAnnouncements(ctx, items))

	require.NoError(t, store.SaveReport(ctx, domain.UserReport{
		UserID:      irisanUser,
		Locality:    "Irisan",
		Description: "No power since early morning in Purok 3",
		OutageTime:  time.Date(2024, time.March, 15, 5, 30, 0, 0, time.UTC),
	}))
}

func fixtureIDs(suffixes ...string) []string {
	out := make([]string, len(suffixes))
	for i, s := range suffixes {
		out[i] = fixturePref + s
	}
	return out
}

func recordIDs(records []domain.OutageRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
