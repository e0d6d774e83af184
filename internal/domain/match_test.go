package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRelevant_EmptyTarget(t *testing.T) {
	rec := OutageRecord{PrimaryLocality: "Riverside", AffectedLocalities: []string{"Riverside"}}

	for _, target := range []string{"", "   "} {
		assert.False(t, IsRelevant(rec, target, MatchStrict), "strict %q", target)
		assert.False(t, IsRelevant(rec, target, MatchBidirectional), "bidirectional %q", target)
	}
}

func TestIsRelevant_ExactPrimaryMatchesInBothModes(t *testing.T) {
	rec := OutageRecord{PrimaryLocality: "Riverside"}

	assert.True(t, IsRelevant(rec, "RIVERSIDE", MatchStrict))
	assert.True(t, IsRelevant(rec, "riverside", MatchBidirectional))
}

func TestIsRelevant_Modes(t *testing.T) {
	tests := []struct {
		name   string
		rec    OutageRecord
		target string
		strict bool
		bidir  bool
	}{
		{
			name:   "target inside primary",
			rec:    OutageRecord{PrimaryLocality: "Riverside Heights"},
			target: "riverside",
			strict: true,
			bidir:  true,
		},
		{
			name:   "primary inside target",
			rec:    OutageRecord{PrimaryLocality: "Session"},
			target: "Session Road Area",
			strict: false,
			bidir:  true,
		},
		{
			name:   "target inside affected area",
			rec:    OutageRecord{PrimaryLocality: "Downtown", AffectedLocalities: []string{"Upper Riverside"}},
			target: "Riverside",
			strict: true,
			bidir:  true,
		},
		{
			name:   "affected area inside target",
			rec:    OutageRecord{AffectedLocalities: []string{"Irisan"}},
			target: "Irisan Proper",
			strict: false,
			bidir:  true,
		},
		{
			name:   "no overlap",
			rec:    OutageRecord{PrimaryLocality: "Downtown", AffectedLocalities: []string{"Aurora Hill"}},
			target: "Riverside",
			strict: false,
			bidir:  false,
		},
		{
			name:   "blank entries never match bidirectionally",
			rec:    OutageRecord{PrimaryLocality: "", AffectedLocalities: []string{"", "  "}},
			target: "Riverside",
			strict: false,
			bidir:  false,
		},
		{
			name:   "nil affected list",
			rec:    OutageRecord{PrimaryLocality: "Downtown"},
			target: "Riverside",
			strict: false,
			bidir:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.strict, IsRelevant(tt.rec, tt.target, MatchStrict))
			assert.Equal(t, tt.bidir, IsRelevant(tt.rec, tt.target, MatchBidirectional))
		})
	}
}

func TestIsRelevant_MalformedAffectedList(t *testing.T) {
	var raw RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","barangay":"Downtown","areas_affected":"not-a-list"}`), &raw))

	rec := NormalizeRecord(raw, time.UTC)

	assert.Empty(t, rec.AffectedLocalities)
	assert.False(t, IsRelevant(rec, "not-a-list", MatchStrict))
	assert.False(t, IsRelevant(rec, "list", MatchBidirectional))
}
