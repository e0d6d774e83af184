package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a single requested row does not exist.
var ErrNotFound = errors.New("not found")

// OutageRecord is an announcement after normalisation at the fetch boundary.
// Records are read-only snapshots; the core only derives from them.
type OutageRecord struct {
	ID                 string   `json:"id"`
	Type               string   `json:"type,omitempty"` // "scheduled" or "unscheduled"
	Status             string   `json:"status"`
	PrimaryLocality    string   `json:"barangay,omitempty"`
	AffectedLocalities []string `json:"areas_affected"`
	Description        string   `json:"description,omitempty"`
	Location           string   `json:"location,omitempty"`
	Cause              string   `json:"cause,omitempty"`

	FeederID   *int64 `json:"feeder_id,omitempty"`
	FeederName string `json:"feeder_name,omitempty"`

	ScheduledAt            *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	EstimatedRestorationAt *time.Time `json:"estimated_restoration_at,omitempty"`

	Geo *Geo `json:"geo,omitempty"`
	// GeoSource is "stored" for coordinates from the table, "forward" when
	// filled in by geocoding, "failed" when geocoding was attempted and failed.
	GeoSource string `json:"geo_source,omitempty"`

	// ImageURL is the first attached image, if any.
	ImageURL string `json:"image_url,omitempty"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HasGeo reports whether the record carries coordinates.
func (r OutageRecord) HasGeo() bool {
	return r.Geo != nil
}

// UserReport is an outage report filed by a resident.
type UserReport struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Locality    string    `json:"barangay,omitempty"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	OutageTime  time.Time `json:"outage_time"`
	CreatedAt   time.Time `json:"created_at"`
}

// Announcement is a single record together with every attached image, as
// shown in the details view.
type Announcement struct {
	Record OutageRecord `json:"record"`
	Images []string     `json:"images"`
	// MapEligible is true when the record is active and has coordinates.
	MapEligible bool `json:"map_eligible"`
}

// NewAnnouncement builds the details view of a record.
func NewAnnouncement(r OutageRecord, images []string) Announcement {
	if images == nil {
		images = []string{}
	}
	return Announcement{
		Record:      r,
		Images:      images,
		MapEligible: MapEligible(r),
	}
}

// ViewKind identifies one of the record presentations kept by the service.
type ViewKind string

const (
	ViewDashboard ViewKind = "dashboard"
	ViewCalendar  ViewKind = "calendar"
	ViewMap       ViewKind = "map"
)

// ViewKinds lists every view in a stable order.
func ViewKinds() []ViewKind {
	return []ViewKind{ViewDashboard, ViewCalendar, ViewMap}
}

// ParseViewKind maps a path segment to a view, reporting false for unknown names.
func ParseViewKind(s string) (ViewKind, bool) {
	switch ViewKind(s) {
	case ViewDashboard, ViewCalendar, ViewMap:
		return ViewKind(s), true
	default:
		return "", false
	}
}

// Backend tables the views depend on.
const (
	TableAnnouncements      = "announcements"
	TableAnnouncementImages = "announcement_images"
	TableFeeders            = "feeders"
)

// ChangeEvent is a realtime notification that a backend table changed. It is
// only a trigger: consumers refetch instead of patching their state.
type ChangeEvent struct {
	Table    string    `json:"table"`
	Op       string    `json:"type"`
	RecordID string    `json:"id,omitempty"`
	At       time.Time `json:"-"`
}

// OpReconnect marks a synthetic change emitted after a feed reconnects,
// because notifications may have been missed while it was down.
const OpReconnect = "RECONNECT"
