package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Map defaults for the service area.
var DefaultMapCenter = Geo{Lat: 16.4142, Lon: 120.5950}

const (
	DefaultMapZoom = 13
	FocusZoom      = 15
	SearchZoom     = 16

	// markerSpread is the offset step in degrees between overlapping markers.
	markerSpread = 0.0003
	goldenAngle  = 137.5
)

// Marker is a map pin for one record. Position may be nudged away from the
// record's coordinates so that pins sharing a spot stay clickable.
type Marker struct {
	RecordID string `json:"record_id"`
	Position Geo    `json:"position"`
	Color    string `json:"color"`
	Status   string `json:"status"`
	Class    string `json:"status_class"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Offset   int    `json:"offset"`
}

// coordKey groups coordinates equal to six decimal places.
func coordKey(g Geo) string {
	return strconv.FormatFloat(g.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(g.Lon, 'f', 6, 64)
}

// LayoutMarkers builds one marker per record with coordinates. Records that
// share a position are spread along a golden-angle spiral in input order;
// the first keeps its exact position.
func LayoutMarkers(records []OutageRecord) []Marker {
	seen := make(map[string]int)
	markers := make([]Marker, 0, len(records))
	for _, r := range records {
		if !r.HasGeo() {
			continue
		}
		key := coordKey(*r.Geo)
		index := seen[key]
		seen[key] = index + 1

		dist := markerSpread * float64(index)
		angle := float64(index) * goldenAngle * math.Pi / 180
		status := ParseStatus(r.Status)
		markers = append(markers, Marker{
			RecordID: r.ID,
			Position: Geo{
				Lat: r.Geo.Lat + dist*math.Cos(angle),
				Lon: r.Geo.Lon + dist*math.Sin(angle),
			},
			Color:    status.Color(),
			Status:   r.Status,
			Class:    status.Class(),
			Title:    MarkerTitle(r),
			Location: MarkerLocation(r),
			Offset:   index,
		})
	}
	return markers
}

// MarkerTitle is the popup heading: the cause, or a generic label.
func MarkerTitle(r OutageRecord) string {
	if c := strings.TrimSpace(r.Cause); c != "" {
		return c
	}
	return "Power Outage"
}

// MarkerLocation is the popup location line.
func MarkerLocation(r OutageRecord) string {
	if l := strings.TrimSpace(r.Location); l != "" {
		return l
	}
	if l := strings.TrimSpace(r.PrimaryLocality); l != "" {
		return l
	}
	return "Location not specified"
}

// MapFocus is where the map should center after a focus or a search, or a
// notice when nothing matched.
type MapFocus struct {
	RecordID string `json:"record_id,omitempty"`
	Center   *Geo   `json:"center,omitempty"`
	Zoom     int    `json:"zoom,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

// Found reports whether a record was selected.
func (f MapFocus) Found() bool { return f.RecordID != "" }

// FocusOnLocality picks the first mapped record relevant to the viewer's
// locality using bidirectional matching. Without a locality it returns a
// zero focus.
func FocusOnLocality(records []OutageRecord, locality string) MapFocus {
	locality = strings.TrimSpace(locality)
	if locality == "" {
		return MapFocus{}
	}
	for _, r := range records {
		if r.HasGeo() && IsRelevant(r, locality, MatchBidirectional) {
			return MapFocus{RecordID: r.ID, Center: &Geo{Lat: r.Geo.Lat, Lon: r.Geo.Lon}, Zoom: FocusZoom}
		}
	}
	return MapFocus{Notice: fmt.Sprintf("No reported or ongoing outages in %s", locality)}
}

// SearchMap finds the first mapped record whose location, primary locality
// or an affected area contains the query. An empty query yields a zero focus.
func SearchMap(records []OutageRecord, query string) MapFocus {
	q := strings.TrimSpace(query)
	if q == "" {
		return MapFocus{}
	}
	lower := strings.ToLower(q)
	for _, r := range records {
		if !r.HasGeo() {
			continue
		}
		if mapSearchHit(r, lower) {
			return MapFocus{RecordID: r.ID, Center: &Geo{Lat: r.Geo.Lat, Lon: r.Geo.Lon}, Zoom: SearchZoom}
		}
	}
	return MapFocus{Notice: fmt.Sprintf("No outages found for %q", q)}
}

func mapSearchHit(r OutageRecord, lower string) bool {
	if strings.Contains(strings.ToLower(r.Location), lower) || strings.Contains(strings.ToLower(r.PrimaryLocality), lower) {
		return true
	}
	for _, area := range r.AffectedLocalities {
		if strings.Contains(strings.ToLower(area), lower) {
			return true
		}
	}
	return false
}

// ParseFeederFilter reads the map's feeder selector. "feeder-N" selects
// feeder N; "", "my-area" and anything unparseable select every feeder.
func ParseFeederFilter(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "my-area" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "feeder-"), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FilterByFeeder keeps records on the given feeder.
func FilterByFeeder(records []OutageRecord, feederID int64) []OutageRecord {
	out := make([]OutageRecord, 0, len(records))
	for _, r := range records {
		if r.FeederID != nil && *r.FeederID == feederID {
			out = append(out, r)
		}
	}
	return out
}

// MapEligible reports whether a record belongs on the outage map.
func MapEligible(r OutageRecord) bool {
	return ParseStatus(r.Status).Active() && r.HasGeo()
}
