package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   Status
		active bool
		class  string
	}{
		{"Reported", StatusReported, true, "status-reported"},
		{"ONGOING", StatusOngoing, true, "status-ongoing"},
		{" completed ", StatusCompleted, false, "status-completed"},
		{"Scheduled", StatusScheduled, false, "status-scheduled"},
		{"unscheduled", StatusUnscheduled, false, "status-unscheduled"},
		{"restored?", StatusUnknown, false, "status-unknown"},
		{"", StatusUnknown, false, "status-unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s := ParseStatus(tt.in)
			assert.Equal(t, tt.want, s)
			assert.Equal(t, tt.active, s.Active())
			assert.Equal(t, tt.class, s.Class())
		})
	}
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, "#FFC107", StatusOngoing.Color())
	assert.Equal(t, "#DC3545", StatusReported.Color())
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "N/A", FormatStatus(""))
	assert.Equal(t, "Ongoing", FormatStatus("ongoing"))
	assert.Equal(t, "Reported", FormatStatus("Reported"))
	assert.Equal(t, "ÉTé", FormatStatus("éTé"))
}

func TestNewAnnouncement(t *testing.T) {
	a := NewAnnouncement(OutageRecord{ID: "a", Status: "Ongoing", Geo: &Geo{Lat: 1, Lon: 1}}, nil)
	assert.True(t, a.MapEligible)
	assert.Equal(t, []string{}, a.Images)

	b := NewAnnouncement(OutageRecord{ID: "b", Status: "Completed", Geo: &Geo{Lat: 1, Lon: 1}}, []string{"x.jpg"})
	assert.False(t, b.MapEligible)

	c := NewAnnouncement(OutageRecord{ID: "c", Status: "Reported"}, nil)
	assert.False(t, c.MapEligible)
}

func TestParseViewKind(t *testing.T) {
	for _, v := range ViewKinds() {
		got, ok := ParseViewKind(string(v))
		assert.True(t, ok)
		assert.Equal(t, v, got)
	}
	_, ok := ParseViewKind("reports")
	assert.False(t, ok)
}

func TestDefaultCriteria(t *testing.T) {
	cal := DefaultCriteria(ViewCalendar)
	assert.Equal(t, "scheduled", cal.Type)
	assert.Equal(t, []string{"completed"}, cal.ExcludeStatuses)
	assert.True(t, cal.RequireSchedule)
	assert.Equal(t, OrderScheduledAsc, cal.OrderBy)

	m := DefaultCriteria(ViewMap)
	assert.Equal(t, []string{"reported", "ongoing"}, m.Statuses)
	assert.True(t, m.RequireCoordinates)

	assert.Equal(t, Criteria{OrderBy: OrderCreatedDesc}, DefaultCriteria(ViewDashboard))
}

func TestViewTables(t *testing.T) {
	assert.Contains(t, ViewTables(ViewDashboard), TableAnnouncementImages)
	assert.Equal(t, []string{TableAnnouncements}, ViewTables(ViewMap))
}
