package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
)

// RecordTransformer implements Transformer. It fills in missing map
// coordinates with forward geocoding and drops map records that still have
// none.
type RecordTransformer struct {
	geocoder domain.Geocoder
	region   string
	logger   *slog.Logger
}

// NewTransformer creates a RecordTransformer. Pass a nil geocoder to disable
// geocoding enrichment.
func NewTransformer(geocoder domain.Geocoder, region string, logger *slog.Logger) *RecordTransformer {
	return &RecordTransformer{
		geocoder: geocoder,
		region:   region,
		logger:   logger,
	}
}

func (t *RecordTransformer) Transform(ctx context.Context, view domain.ViewKind, records []domain.OutageRecord) []domain.OutageRecord {
	if view != domain.ViewMap {
		return records
	}

	out := make([]domain.OutageRecord, 0, len(records))
	geocoded := 0
	for _, r := range records {
		if !r.HasGeo() && t.geocoder != nil {
			r = domain.EnrichWithGeocoding(ctx, r, t.geocoder, t.region, t.logger)
			if r.HasGeo() {
				geocoded++
			}
		}
		if r.HasGeo() {
			out = append(out, r)
		}
	}
	if geocoded > 0 {
		t.logger.Debug("map records geocoded", "count", geocoded)
	}
	return out
}

// MapCriteria returns the map fetch criteria. With geocoding enabled records
// without coordinates are fetched too, so they can be geocoded.
func MapCriteria(geocoding bool) domain.Criteria {
	c := domain.DefaultCriteria(domain.ViewMap)
	if geocoding {
		c.RequireCoordinates = false
	}
	return c
}
