package postgres

import (
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
)

// recordRow is one announcement joined with its feeder and first image.
// Every nullable column is scanned leniently so a bad row degrades instead
// of failing the whole fetch.
type recordRow struct {
	ID                     string              `db:"id"`
	Type                   sql.NullString      `db:"type"`
	Status                 sql.NullString      `db:"status"`
	Barangay               sql.NullString      `db:"barangay"`
	AreasAffected          domain.LocalityList `db:"areas_affected"`
	Description            sql.NullString      `db:"description"`
	Location               sql.NullString      `db:"location"`
	Cause                  sql.NullString      `db:"cause"`
	FeederID               sql.NullInt64       `db:"feeder_id"`
	FeederName             sql.NullString      `db:"feeder_name"`
	ScheduledAt            sql.NullTime        `db:"scheduled_at"`
	CreatedAt              sql.NullTime        `db:"created_at"`
	EstimatedRestorationAt sql.NullTime        `db:"estimated_restoration_at"`
	Latitude               sql.NullFloat64     `db:"latitude"`
	Longitude              sql.NullFloat64     `db:"longitude"`
	ImageURL               sql.NullString      `db:"image_url"`
}

func (r recordRow) toDomain() domain.OutageRecord {
	rec := domain.OutageRecord{
		ID:                 r.ID,
		Type:               strings.TrimSpace(r.Type.String),
		Status:             strings.TrimSpace(r.Status.String),
		PrimaryLocality:    strings.TrimSpace(r.Barangay.String),
		AffectedLocalities: []string(r.AreasAffected),
		Description:        r.Description.String,
		Location:           r.Location.String,
		Cause:              r.Cause.String,
		FeederName:         r.FeederName.String,
		ScheduledAt:        nullTime(r.ScheduledAt),
		ImageURL:           r.ImageURL.String,
	}
	rec.EstimatedRestorationAt = nullTime(r.EstimatedRestorationAt)
	if rec.AffectedLocalities == nil {
		rec.AffectedLocalities = []string{}
	}
	if r.CreatedAt.Valid {
		rec.CreatedAt = r.CreatedAt.Time
	}
	if r.FeederID.Valid {
		id := r.FeederID.Int64
		rec.FeederID = &id
	}
	if validCoord(r.Latitude) && validCoord(r.Longitude) {
		rec.Geo = &domain.Geo{Lat: r.Latitude.Float64, Lon: r.Longitude.Float64}
		rec.GeoSource = "stored"
	}
	return rec
}

type reportRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Barangay    sql.NullString `db:"barangay"`
	Status      sql.NullString `db:"status"`
	Description sql.NullString `db:"description"`
	OutageTime  sql.NullTime   `db:"outage_time"`
	CreatedAt   sql.NullTime   `db:"created_at"`
}

func (r reportRow) toDomain() domain.UserReport {
	return domain.UserReport{
		ID:          r.ID,
		UserID:      r.UserID,
		Locality:    r.Barangay.String,
		Status:      r.Status.String,
		Description: r.Description.String,
		OutageTime:  r.OutageTime.Time,
		CreatedAt:   r.CreatedAt.Time,
	}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func validCoord(f sql.NullFloat64) bool {
	return f.Valid && !math.IsNaN(f.Float64) && !math.IsInf(f.Float64, 0)
}
