package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder fills in coordinates for announcements that only carry a place name.
type Geocoder interface {
	// ForwardGeocode converts a free-text place and a region hint to coordinates.
	ForwardGeocode(ctx context.Context, place, region string) (GeocodingResult, error)
}
