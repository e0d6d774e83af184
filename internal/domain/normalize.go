package domain

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// LocalityList is the affected-areas column after coercion. It never holds
// empty entries, and anything that is not a list decodes to an empty list.
type LocalityList []string

// Scan implements sql.Scanner for Postgres text[] columns and JSON arrays
// stored as text. NULL elements are dropped.
func (l *LocalityList) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = LocalityList{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		*l = LocalityList{}
		return nil
	}

	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return l.UnmarshalJSON(b)
	}
	if len(b) == 0 || b[0] != '{' {
		*l = LocalityList{}
		return nil
	}

	var elems []sql.NullString
	if err := (pq.GenericArray{A: &elems}).Scan(b); err != nil {
		return fmt.Errorf("scan locality list: %w", err)
	}
	out := make(LocalityList, 0, len(elems))
	for _, e := range elems {
		if e.Valid && strings.TrimSpace(e.String) != "" {
			out = append(out, e.String)
		}
	}
	*l = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Non-string, null and blank entries
// are dropped; a value that is not an array yields an empty list.
func (l *LocalityList) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode locality list: %w", err)
	}
	items, ok := v.([]any)
	if !ok {
		*l = LocalityList{}
		return nil
	}
	out := make(LocalityList, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// RawRecord is the loosely typed JSON shape of an announcement row as the
// hosted backend returns it. Fields are deliberately permissive.
type RawRecord struct {
	ID                     any          `json:"id"`
	Type                   string       `json:"type"`
	Status                 string       `json:"status"`
	Barangay               any          `json:"barangay"`
	AreasAffected          LocalityList `json:"areas_affected"`
	Description            string       `json:"description"`
	Location               string       `json:"location"`
	Cause                  string       `json:"cause"`
	FeederID               any          `json:"feeder_id"`
	Feeders                *RawFeeder   `json:"feeders"`
	ScheduledAt            string       `json:"scheduled_at"`
	CreatedAt              string       `json:"created_at"`
	EstimatedRestorationAt string       `json:"estimated_restoration_at"`
	Latitude               any          `json:"latitude"`
	Longitude              any          `json:"longitude"`
	ImageURL               string       `json:"image_url"`
}

// RawFeeder is the embedded feeder relation.
type RawFeeder struct {
	Name string `json:"name"`
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp spellings produced by Postgres and its
// REST layer. Values without an offset are wall-clock times in loc, or UTC
// when loc is nil. It returns false for empty or unparseable input.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeRecord coerces a raw row into an OutageRecord. It never fails:
// unparseable timestamps become zero or nil, unusable coordinates are
// dropped, and an unknown status is kept verbatim. Timestamps without an
// offset are read in loc.
func NormalizeRecord(raw RawRecord, loc *time.Location) OutageRecord {
	rec := OutageRecord{
		ID:                 scalarString(raw.ID),
		Type:               strings.TrimSpace(raw.Type),
		Status:             strings.TrimSpace(raw.Status),
		PrimaryLocality:    strings.TrimSpace(scalarString(raw.Barangay)),
		AffectedLocalities: []string(raw.AreasAffected),
		Description:        raw.Description,
		Location:           raw.Location,
		Cause:              raw.Cause,
		ImageURL:           raw.ImageURL,
	}
	if rec.AffectedLocalities == nil {
		rec.AffectedLocalities = []string{}
	}
	if raw.Feeders != nil {
		rec.FeederName = raw.Feeders.Name
	}
	if id, ok := scalarInt(raw.FeederID); ok {
		rec.FeederID = &id
	}
	if t, ok := ParseTimestamp(raw.CreatedAt, loc); ok {
		rec.CreatedAt = t
	}
	if t, ok := ParseTimestamp(raw.ScheduledAt, loc); ok {
		rec.ScheduledAt = &t
	}
	if t, ok := ParseTimestamp(raw.EstimatedRestorationAt, loc); ok {
		rec.EstimatedRestorationAt = &t
	}
	lat, latOK := scalarFloat(raw.Latitude)
	lon, lonOK := scalarFloat(raw.Longitude)
	if latOK && lonOK {
		rec.Geo = &Geo{Lat: lat, Lon: lon}
		rec.GeoSource = "stored"
	}
	return rec
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func scalarFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func scalarInt(v any) (int64, bool) {
	f, ok := scalarFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
