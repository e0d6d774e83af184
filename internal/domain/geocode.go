package domain

import (
	"context"
	"log/slog"
	"strings"
)

// GeocodeQuery is the free text sent to the geocoder for a record: its
// location line followed by its primary locality.
func GeocodeQuery(r OutageRecord) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{r.Location, r.PrimaryLocality} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// EnrichWithGeocoding attempts to fill in missing coordinates for a record.
// Records that already have coordinates are marked "stored" and returned
// unchanged. If geocoder is nil or geocoding fails, the record is returned
// without coordinates (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, r OutageRecord, geocoder Geocoder, region string, logger *slog.Logger) OutageRecord {
	if r.HasGeo() {
		r.GeoSource = "stored"
		return r
	}
	if geocoder == nil {
		return r
	}

	query := GeocodeQuery(r)
	if query == "" {
		return r
	}

	result, err := geocoder.ForwardGeocode(ctx, query, region)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"record_id", r.ID,
			"query", query,
			"region", region,
			"error", err,
		)
		r.GeoSource = "failed"
		return r
	}
	if result.Lat == 0 && result.Lon == 0 {
		return r
	}

	r.Geo = &Geo{Lat: result.Lat, Lon: result.Lon}
	r.GeoSource = "forward"
	return r
}
