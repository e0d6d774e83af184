//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/adapter/postgres"
	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/locality"
	"github.com/couchcryptid/beacon-outage-service/internal/observability"
	"github.com/couchcryptid/beacon-outage-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore verifies the SQL criteria, lookups and details reads against a
// seeded database.
func TestStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := openStore(ctx, t, startPostgres(ctx, t))
	seedFixture(ctx, t, store)

	t.Run("criteria per view", func(t *testing.T) {
		cases := []struct {
			name     string
			criteria domain.Criteria
			want     []string
		}{
			{
				name:     "dashboard",
				criteria: domain.DefaultCriteria(domain.ViewDashboard),
				want:     fixtureIDs("08", "11", "07", "02", "01", "09", "06", "10", "04", "03", "05"),
			},
			{
				name:     "calendar",
				criteria: domain.DefaultCriteria(domain.ViewCalendar),
				want:     fixtureIDs("03", "10", "04"),
			},
			{
				name:     "map",
				criteria: domain.DefaultCriteria(domain.ViewMap),
				want:     fixtureIDs("08", "11", "07", "02", "01"),
			},
			{
				name:     "map with geocoding",
				criteria: pipeline.MapCriteria(true),
				want:     fixtureIDs("08", "11", "07", "02", "01", "09"),
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				records, err := store.FetchRecords(ctx, tc.criteria)
				require.NoError(t, err)
				if diff := cmp.Diff(tc.want, recordIDs(records)); diff != "" {
					t.Fatalf("order mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})

	t.Run("joined columns", func(t *testing.T) {
		records, err := store.FetchRecords(ctx, domain.Criteria{Limit: 20})
		require.NoError(t, err)
		byID := map[string]domain.OutageRecord{}
		for _, r := range records {
			byID[r.ID] = r
		}

		first := byID[fixturePref+"01"]
		assert.Equal(t, "Feeder 1 - Irisan", first.FeederName)
		assert.Equal(t, "https://storage.beacon.example/announcement-images/0001.jpg", first.ImageURL)
		assert.Equal(t, []string{"Upper Irisan", "Purok 3"}, first.AffectedLocalities)
		assert.Equal(t, "stored", first.GeoSource)

		kennon := byID[fixturePref+"08"]
		assert.Empty(t, kennon.PrimaryLocality)
		assert.Nil(t, kennon.FeederID)
		assert.Equal(t, &domain.Geo{Lat: 16.372, Lon: 120.601}, kennon.Geo)

		assert.Equal(t, []string{}, byID[fixturePref+"06"].AffectedLocalities)
	})

	t.Run("locality lookups", func(t *testing.T) {
		name, err := store.LookupLocalityName(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "Irisan", name)

		_, err = store.LookupLocalityName(ctx, "999")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		names, err := store.SearchLocalities(ctx, "irisan", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Irisan", "Upper Irisan"}, names)

		names, err = store.SearchLocalities(ctx, "%", 10)
		require.NoError(t, err)
		assert.Empty(t, names, "LIKE wildcards are matched literally")
	})

	t.Run("resolver", func(t *testing.T) {
		resolver := locality.NewResolver(store, store, observability.NewMetricsForTesting(), discardLogger())

		lc := resolver.Resolve(ctx, irisanUser)
		assert.Equal(t, "Irisan", lc.Resolved)
		assert.Equal(t, domain.OutcomeResolved, lc.Outcome)

		lc = resolver.Resolve(ctx, loakanUser)
		assert.Equal(t, "Loakan Proper", lc.Resolved)
		assert.Equal(t, domain.OutcomeVerbatim, lc.Outcome)

		lc = resolver.Resolve(ctx, unsetUser)
		assert.False(t, lc.IsSet())
		assert.Equal(t, domain.OutcomeUnset, lc.Outcome)

		lc = resolver.Resolve(ctx, "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0099")
		assert.False(t, lc.IsSet(), "a user without a profile row has no locality")
		assert.Equal(t, domain.OutcomeUnset, lc.Outcome)
	})

	t.Run("announcement details", func(t *testing.T) {
		a, err := store.FetchAnnouncement(ctx, fixturePref+"01")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://storage.beacon.example/announcement-images/0001.jpg"}, a.Images)
		assert.True(t, a.MapEligible)

		a, err = store.FetchAnnouncement(ctx, fixturePref+"03")
		require.NoError(t, err)
		assert.Equal(t, []string{}, a.Images)
		assert.False(t, a.MapEligible)

		_, err = store.FetchAnnouncement(ctx, fixturePref+"99")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("user reports", func(t *testing.T) {
		reports, err := store.FetchUserReports(ctx, irisanUser)
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "Irisan", reports[0].Locality)
		assert.Equal(t, "pending", reports[0].Status)

		reports, err = store.FetchUserReports(ctx, loakanUser)
		require.NoError(t, err)
		assert.Empty(t, reports)
	})
}

// TestListener verifies that writes fire NOTIFY and reach a subscription.
func TestListener(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)
	store := openStore(ctx, t, dsn)
	require.NoError(t, store.SaveLocalities(ctx, fixtureBarangays))

	listener := postgres.NewListener(dsn, discardLogger())
	sub, err := listener.Subscribe(ctx, "test", []string{domain.TableAnnouncements})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	feeder := int64(7)
	rec := domain.OutageRecord{
		ID:        fixturePref + "42",
		Type:      "unscheduled",
		Status:    "Reported",
		FeederID:  &feeder,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveAnnouncements(ctx, []domain.Announcement{domain.NewAnnouncement(rec, nil)}))

	select {
	case ev := <-sub.Changes():
		// The feeder upsert fires first but the subscription only wants announcements.
		assert.Equal(t, domain.TableAnnouncements, ev.Table)
		assert.Equal(t, "INSERT", ev.Op)
		assert.Equal(t, rec.ID, ev.RecordID)
	case <-sub.Done():
		t.Fatalf("subscription ended: %v", sub.Err())
	case <-ctx.Done():
		t.Fatal("timed out waiting for notification")
	}
}

// TestPipeline_PostgresFeed runs the pipeline against the database with
// LISTEN/NOTIFY driving reloads.
func TestPipeline_PostgresFeed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)
	store := openStore(ctx, t, dsn)
	seedFixture(ctx, t, store)

	p := pipeline.New(store, pipeline.NewTransformer(nil, "", discardLogger()),
		postgres.NewListener(dsn, discardLogger()), discardLogger(), observability.NewMetricsForTesting())
	updates, stop, err := p.Watch(domain.ViewMap)
	require.NoError(t, err)
	defer stop()

	runCtx, stopRun := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(runCtx) }()
	t.Cleanup(func() {
		stopRun()
		require.NoError(t, <-errCh)
	})

	waitForCount(ctx, t, updates, 5)
	require.Eventually(t, func() bool { return p.Subscriptions().Active(domain.ViewMap) },
		30*time.Second, 100*time.Millisecond)

	rec := domain.OutageRecord{
		ID:        fixturePref + "43",
		Type:      "unscheduled",
		Status:    "Ongoing",
		CreatedAt: time.Now().UTC(),
		Geo:       &domain.Geo{Lat: 16.40, Lon: 120.59},
	}
	require.NoError(t, store.SaveAnnouncements(ctx, []domain.Announcement{domain.NewAnnouncement(rec, nil)}))

	snap := waitForCount(ctx, t, updates, 6)
	assert.Equal(t, rec.ID, snap.Records[0].ID, "newest first")
	assert.NoError(t, p.CheckReadiness(ctx))
}

// waitForCount reads snapshots until one holds n records.
func waitForCount(ctx context.Context, t *testing.T, updates <-chan pipeline.Snapshot, n int) pipeline.Snapshot {
	t.Helper()
	for {
		select {
		case snap := <-updates:
			require.Equal(t, pipeline.StateLoaded, snap.State, "load failed: %v", snap.Err)
			if len(snap.Records) == n {
				return snap
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for a snapshot with %d records", n)
		}
	}
}
