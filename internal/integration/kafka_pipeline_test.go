//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/adapter/kafka"
	"github.com/couchcryptid/beacon-outage-service/internal/config"
	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/observability"
	"github.com/couchcryptid/beacon-outage-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChangeTopic = "test-outage-changes"

func kafkaConfig(broker string) *config.Config {
	return &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaChangeTopic: testChangeTopic,
		KafkaGroupID:     fmt.Sprintf("test-beacon-%d", time.Now().UnixNano()),
	}
}

// publishUntil republishes changes every second until done returns true.
// A new consumer group starts at the latest offset once its partitions are
// assigned, so changes published before the rebalance are not seen.
func publishUntil(ctx context.Context, t *testing.T, pub *kafka.Publisher, changes []domain.ChangeEvent, done func() bool) {
	t.Helper()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		require.NoError(t, pub.PublishChanges(ctx, changes))
		select {
		case <-ticker.C:
		case <-ctx.Done():
			t.Fatal("timed out waiting for the change to arrive")
		}
		if done() {
			return
		}
	}
}

// TestKafkaChangeFeed verifies the adapter layer: kafka.Publisher and
// kafka.ChangeFeed round-trip a change through the topic, and a subscription
// only receives the tables it asked for.
func TestKafkaChangeFeed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testChangeTopic)
	cfg := kafkaConfig(broker)

	pub := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	feed := kafka.NewChangeFeed(cfg, discardLogger())
	sub, err := feed.Subscribe(ctx, "calendar", domain.ViewTables(domain.ViewCalendar))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	changes := []domain.ChangeEvent{
		{Table: domain.TableFeeders, Op: "UPDATE", RecordID: "2"},
		{Table: domain.TableAnnouncements, Op: "update", RecordID: fixturePref + "03"},
	}
	var got []domain.ChangeEvent
	publishUntil(ctx, t, pub, changes, func() bool {
		for {
			select {
			case ev := <-sub.Changes():
				got = append(got, ev)
			default:
				return len(got) > 0
			}
		}
	})

	for _, ev := range got {
		assert.Equal(t, domain.TableAnnouncements, ev.Table, "feeder changes are filtered out")
		assert.Equal(t, "UPDATE", ev.Op)
		assert.Equal(t, fixturePref+"03", ev.RecordID)
		assert.False(t, ev.At.IsZero())
	}

	require.NoError(t, sub.Close())
	select {
	case <-sub.Done():
	case <-ctx.Done():
		t.Fatal("subscription did not stop after close")
	}
}

// TestPipeline_KafkaFeed runs the full service core: the store serves the
// views and a CDC topic drives the reloads.
func TestPipeline_KafkaFeed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store := openStore(ctx, t, startPostgres(ctx, t))
	seedFixture(ctx, t, store)

	broker := startKafka(ctx, t)
	createTopic(t, broker, testChangeTopic)
	cfg := kafkaConfig(broker)

	pub := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	var feed pipeline.ChangeFeed = kafka.NewChangeFeed(cfg, discardLogger())
	p := pipeline.New(store, pipeline.NewTransformer(nil, "", discardLogger()), feed,
		discardLogger(), observability.NewMetricsForTesting())
	updates, stop, err := p.Watch(domain.ViewDashboard)
	require.NoError(t, err)
	defer stop()

	runCtx, stopRun := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(runCtx) }()
	t.Cleanup(func() {
		stopRun()
		require.NoError(t, <-errCh)
	})

	first := waitForCount(ctx, t, updates, 11)
	require.NoError(t, p.CheckReadiness(ctx))

	rec := domain.OutageRecord{
		ID:              fixturePref + "44",
		Type:            "unscheduled",
		Status:          "Reported",
		PrimaryLocality: "Irisan",
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.SaveAnnouncements(ctx, []domain.Announcement{domain.NewAnnouncement(rec, nil)}))

	change := []domain.ChangeEvent{{Table: domain.TableAnnouncements, Op: "INSERT", RecordID: rec.ID}}
	publishUntil(ctx, t, pub, change, func() bool {
		return len(p.Current(domain.ViewDashboard).Records) == 12
	})

	snap := p.Current(domain.ViewDashboard)
	assert.Greater(t, snap.Generation, first.Generation)

	lc := domain.LocalityContext{Raw: "1", Resolved: "Irisan", Outcome: domain.OutcomeResolved}
	d := pipeline.BuildDashboard(snap, lc, domain.FilterOptions{}, time.UTC)
	require.NotEmpty(t, d.Items)
	assert.Equal(t, rec.ID, d.Items[0].ID, "the newest active outage in the viewer's area ranks first")
	assert.Equal(t, 100, d.Items[0].Score)
}
