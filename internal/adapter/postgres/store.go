// Package postgres reads announcements, profiles and localities from Postgres
// and streams table changes over LISTEN/NOTIFY.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	connectAttempts = 10
	connectWait     = 2 * time.Second

	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Open connects to Postgres, waiting for the database to accept connections
// since it may still be starting alongside the service.
func Open(ctx context.Context, url string, maxOpen int, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		logger.Warn("waiting for database", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(connectWait):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("connect database: %w", err)
}

// Store implements the record, profile and locality reads of the service.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over an open connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const recordSelect = `
SELECT a.id::text AS id, a.type, a.status, a.barangay, a.areas_affected,
       a.description, a.location, a.cause, a.feeder_id, f.name AS feeder_name,
       a.scheduled_at, a.created_at, a.estimated_restoration_at,
       a.latitude, a.longitude,
       (SELECT i.image_url FROM announcement_images i
         WHERE i.announcement_id = a.id ORDER BY i.id LIMIT 1) AS image_url
FROM announcements a
LEFT JOIN feeders f ON f.id = a.feeder_id`

// buildRecordQuery renders the criteria as SQL with positional arguments.
func buildRecordQuery(c domain.Criteria) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if c.Type != "" {
		where = append(where, "lower(a.type) = "+arg(strings.ToLower(c.Type)))
	}
	if len(c.Statuses) > 0 {
		where = append(where, "lower(a.status) = ANY("+arg(pq.Array(lowerAll(c.Statuses)))+")")
	}
	if len(c.ExcludeStatuses) > 0 {
		where = append(where, "(a.status IS NULL OR NOT lower(a.status) = ANY("+arg(pq.Array(lowerAll(c.ExcludeStatuses)))+"))")
	}
	if c.RequireSchedule {
		where = append(where, "a.scheduled_at IS NOT NULL")
	}
	if c.RequireCoordinates {
		where = append(where, "a.latitude IS NOT NULL AND a.longitude IS NOT NULL")
	}

	var b strings.Builder
	b.WriteString(recordSelect)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, "\n  AND "))
	}
	switch c.OrderBy {
	case domain.OrderScheduledAsc:
		b.WriteString("\nORDER BY a.scheduled_at ASC, a.id")
	default:
		b.WriteString("\nORDER BY a.created_at DESC, a.id")
	}
	if c.Limit > 0 {
		b.WriteString("\nLIMIT " + arg(c.Limit))
	}
	return b.String(), args
}

// FetchRecords returns the announcements matching c, normalised.
func (s *Store) FetchRecords(ctx context.Context, c domain.Criteria) ([]domain.OutageRecord, error) {
	query, args := buildRecordQuery(c)
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("fetch announcements: %w", err)
	}
	out := make([]domain.OutageRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// FetchAnnouncement returns one announcement with all of its images.
func (s *Store) FetchAnnouncement(ctx context.Context, id string) (domain.Announcement, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, recordSelect+"\nWHERE a.id::text = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Announcement{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("fetch announcement %s: %w", id, err)
	}

	images := []string{}
	err = s.db.SelectContext(ctx, &images,
		`SELECT image_url FROM announcement_images WHERE announcement_id::text = $1 ORDER BY id`, id)
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("fetch images of %s: %w", id, err)
	}
	return domain.NewAnnouncement(row.toDomain(), images), nil
}

// FetchUserReports returns a user's own reports, newest first.
func (s *Store) FetchUserReports(ctx context.Context, userID string) ([]domain.UserReport, error) {
	var rows []reportRow
	err := s.db.SelectContext(ctx, &rows, `
SELECT r.id::text AS id, r.user_id::text AS user_id, b.name AS barangay, r.status,
       r.description, r.outage_time, r.created_at
FROM reports r
LEFT JOIN barangays b ON b.id = r.barangay_id
WHERE r.user_id::text = $1
ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch reports: %w", err)
	}
	out := make([]domain.UserReport, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// LookupLocalityName implements domain.LocalityLookup against the barangays table.
func (s *Store) LookupLocalityName(ctx context.Context, id string) (string, error) {
	var name string
	err := s.db.GetContext(ctx, &name, `SELECT name FROM barangays WHERE id::text = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup barangay %s: %w", id, err)
	}
	return name, nil
}

// ProfileLocality returns the stored barangay value of a profile.
func (s *Store) ProfileLocality(ctx context.Context, userID string) (domain.ProfileLocality, error) {
	var v sql.NullString
	err := s.db.GetContext(ctx, &v, `SELECT barangay::text FROM profiles WHERE id::text = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProfileLocality{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ProfileLocality{}, fmt.Errorf("read profile %s: %w", userID, err)
	}
	return domain.ProfileLocality{Value: v.String, Valid: v.Valid}, nil
}

// SearchLocalities returns barangay names containing q, ordered by name.
func (s *Store) SearchLocalities(ctx context.Context, q string, limit int) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []string{}, nil
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}
	names := []string{}
	err := s.db.SelectContext(ctx, &names,
		`SELECT name FROM barangays WHERE name ILIKE $1 ESCAPE '\' ORDER BY name LIMIT $2`,
		"%"+escapeLike(q)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search barangays: %w", err)
	}
	return names, nil
}

// SaveLocalities inserts barangay names, skipping ones that exist.
func (s *Store) SaveLocalities(ctx context.Context, names []string) error {
	for _, n := range names {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO barangays (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, n); err != nil {
			return fmt.Errorf("insert barangay %q: %w", n, err)
		}
	}
	return nil
}

// SaveProfile upserts the barangay value of a profile.
func (s *Store) SaveProfile(ctx context.Context, userID, barangay string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO profiles (id, barangay) VALUES ($1, NULLIF($2, ''))
ON CONFLICT (id) DO UPDATE SET barangay = EXCLUDED.barangay`, userID, barangay)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", userID, err)
	}
	return nil
}

// SaveAnnouncements upserts announcements with their feeders and images in a
// single transaction. Records without an id get a new UUID.
func (s *Store) SaveAnnouncements(ctx context.Context, items []domain.Announcement) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i := range items {
		r := &items[i].Record
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		if r.FeederID != nil {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO feeders (id, name) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), feeders.name)`,
				*r.FeederID, r.FeederName); err != nil {
				return fmt.Errorf("upsert feeder %d: %w", *r.FeederID, err)
			}
		}

		var lat, lon sql.NullFloat64
		if r.Geo != nil {
			lat = sql.NullFloat64{Float64: r.Geo.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: r.Geo.Lon, Valid: true}
		}
		areas := r.AffectedLocalities
		if areas == nil {
			areas = []string{}
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO announcements (id, type, status, barangay, areas_affected, description, location,
  cause, feeder_id, scheduled_at, created_at, estimated_restoration_at, latitude, longitude)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
  type = EXCLUDED.type,
  status = EXCLUDED.status,
  barangay = EXCLUDED.barangay,
  areas_affected = EXCLUDED.areas_affected,
  description = EXCLUDED.description,
  location = EXCLUDED.location,
  cause = EXCLUDED.cause,
  feeder_id = EXCLUDED.feeder_id,
  scheduled_at = EXCLUDED.scheduled_at,
  estimated_restoration_at = EXCLUDED.estimated_restoration_at,
  latitude = EXCLUDED.latitude,
  longitude = EXCLUDED.longitude`,
			r.ID, r.Type, r.Status, r.PrimaryLocality, pq.Array(areas), r.Description, r.Location,
			r.Cause, r.FeederID, r.ScheduledAt, r.CreatedAt, r.EstimatedRestorationAt, lat, lon,
		); err != nil {
			return fmt.Errorf("upsert announcement %s: %w", r.ID, err)
		}

		for _, img := range items[i].Images {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO announcement_images (announcement_id, image_url) VALUES ($1, $2)
ON CONFLICT (announcement_id, image_url) DO NOTHING`, r.ID, img); err != nil {
				return fmt.Errorf("insert image of %s: %w", r.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SaveReport inserts a user report, linking it to the named barangay.
func (s *Store) SaveReport(ctx context.Context, r domain.UserReport) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = "pending"
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO reports (id, user_id, barangay_id, status, description, outage_time, created_at)
VALUES ($1, $2, (SELECT id FROM barangays WHERE name = $3), $4, $5, $6, $7)`,
		r.ID, r.UserID, r.Locality, r.Status, r.Description, nullableTime(r.OutageTime), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
