package pipeline

import (
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
)

// DashboardItem is one ranked announcement on the dashboard.
type DashboardItem struct {
	domain.OutageRecord
	Score       int    `json:"score"`
	YourArea    bool   `json:"your_area"`
	StatusClass string `json:"status_class"`
	StatusLabel string `json:"status_label"`
}

// Dashboard is the ranked and filtered announcement feed of one viewer.
type Dashboard struct {
	Locality domain.LocalityContext `json:"locality"`
	Items    []DashboardItem        `json:"items"`
	// Total counts the announcements before the interactive filters.
	Total int `json:"total"`
}

// BuildDashboard ranks a snapshot for the viewer's locality, then applies the
// interactive filters. Ranking happens first so filtering keeps rank order.
func BuildDashboard(snap Snapshot, lc domain.LocalityContext, opts domain.FilterOptions, loc *time.Location) Dashboard {
	ranked := domain.Rank(snap.Records, lc.Name())
	filtered := domain.Filter(ranked, opts, loc)

	items := make([]DashboardItem, len(filtered))
	for i, r := range filtered {
		items[i] = DashboardItem{
			OutageRecord: r,
			Score:        domain.Score(r, lc.Name()),
			YourArea:     domain.IsRelevant(r, lc.Name(), domain.MatchStrict),
			StatusClass:  domain.ParseStatus(r.Status).Class(),
			StatusLabel:  domain.FormatStatus(r.Status),
		}
	}
	return Dashboard{Locality: lc, Items: items, Total: len(snap.Records)}
}

// MonthRef names a month for navigation.
type MonthRef struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// CalendarDay is a month grid cell with its outages.
type CalendarDay struct {
	domain.CalendarCell
	Today    bool     `json:"today,omitempty"`
	Selected bool     `json:"selected,omitempty"`
	Count    int      `json:"count,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

// ScheduleEntry is one outage in the selected day's schedule.
type ScheduleEntry struct {
	Record domain.OutageRecord `json:"record"`
	Place  string              `json:"place"`
	Start  string              `json:"start"`
	End    string              `json:"end,omitempty"`
}

// Calendar is a month of scheduled outages for one viewer.
type Calendar struct {
	Locality domain.LocalityContext `json:"locality"`
	MonthRef
	Leading  int             `json:"leading"`
	Days     []CalendarDay   `json:"days"`
	Prev     MonthRef        `json:"prev"`
	Next     MonthRef        `json:"next"`
	Selected time.Time       `json:"selected"`
	Title    string          `json:"title"`
	Schedule []ScheduleEntry `json:"schedule"`
}

const (
	cellTimeLayout     = "3:04 PM"
	scheduleTimeLayout = "03:04 PM"
	titleDateLayout    = "Monday, January 2, 2006"
)

// BuildCalendar lays out a month and the schedule of the selected day. When
// the viewer has a locality only outages relevant to it (strict matching)
// are shown.
func BuildCalendar(snap Snapshot, lc domain.LocalityContext, year int, month time.Month, selected time.Time, loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	records := snap.Records
	if lc.IsSet() {
		records = make([]domain.OutageRecord, 0, len(snap.Records))
		for _, r := range snap.Records {
			if domain.IsRelevant(r, lc.Name(), domain.MatchStrict) {
				records = append(records, r)
			}
		}
	}

	grid := domain.BuildMonthGrid(year, month, loc)
	today := domain.Today(loc)
	cal := Calendar{
		Locality: lc,
		MonthRef: MonthRef{Year: grid.Year, Month: grid.Month},
		Leading:  grid.Leading,
		Days:     make([]CalendarDay, len(grid.Cells)),
		Selected: domain.StartOfDay(selected, loc),
	}
	cal.Prev.Year, cal.Prev.Month = domain.ShiftMonth(grid.Year, grid.Month, -1)
	cal.Next.Year, cal.Next.Month = domain.ShiftMonth(grid.Year, grid.Month, 1)

	for i, cell := range grid.Cells {
		day := CalendarDay{CalendarCell: cell}
		if !cell.Blank() {
			bucket := domain.BucketForDay(records, cell.Date, domain.FieldScheduledAt, loc)
			day.Today = domain.SameDay(cell.Date, today, loc)
			day.Selected = domain.SameDay(cell.Date, selected, loc)
			day.Count = len(bucket)
			for _, r := range bucket {
				day.Labels = append(day.Labels, r.ScheduledAt.In(loc).Format(cellTimeLayout)+" Scheduled")
			}
		}
		cal.Days[i] = day
	}

	if domain.SameDay(selected, today, loc) {
		cal.Title = "Today's Schedule"
	} else {
		cal.Title = "Schedule for " + selected.In(loc).Format(titleDateLayout)
	}

	daily := domain.BucketForDay(records, selected, domain.FieldScheduledAt, loc)
	cal.Schedule = make([]ScheduleEntry, len(daily))
	for i, r := range daily {
		entry := ScheduleEntry{
			Record: r,
			Place:  schedulePlace(r),
			Start:  r.ScheduledAt.In(loc).Format(scheduleTimeLayout),
		}
		if r.EstimatedRestorationAt != nil {
			entry.End = r.EstimatedRestorationAt.In(loc).Format(scheduleTimeLayout)
		}
		cal.Schedule[i] = entry
	}
	return cal
}

func schedulePlace(r domain.OutageRecord) string {
	switch {
	case r.Location != "":
		return r.Location
	case r.PrimaryLocality != "":
		return r.PrimaryLocality
	default:
		return "Multiple Areas"
	}
}

// MapOptions are the viewer's map controls.
type MapOptions struct {
	// Feeder is the feeder selector: "feeder-N", "my-area" or empty.
	Feeder string
	// Query is the free-text location search.
	Query string
}

// MapView is the outage map of one viewer.
type MapView struct {
	Locality domain.LocalityContext `json:"locality"`
	Center   domain.Geo             `json:"center"`
	Zoom     int                    `json:"zoom"`
	Markers  []domain.Marker        `json:"markers"`
	Focus    domain.MapFocus        `json:"focus,omitzero"`
	Search   domain.MapFocus        `json:"search,omitzero"`
}

// BuildMap lays out markers for the active outages. A search takes the view
// to the first hit; otherwise a viewer with a locality is focused on the
// first outage near it (bidirectional matching).
func BuildMap(snap Snapshot, lc domain.LocalityContext, opts MapOptions) MapView {
	records := snap.Records
	if feeder, ok := domain.ParseFeederFilter(opts.Feeder); ok {
		records = domain.FilterByFeeder(records, feeder)
	}

	view := MapView{
		Locality: lc,
		Center:   domain.DefaultMapCenter,
		Zoom:     domain.DefaultMapZoom,
		Markers:  domain.LayoutMarkers(records),
	}

	if opts.Query != "" {
		view.Search = domain.SearchMap(records, opts.Query)
		if view.Search.Found() {
			view.Center, view.Zoom = *view.Search.Center, view.Search.Zoom
		}
		return view
	}
	if lc.IsSet() {
		view.Focus = domain.FocusOnLocality(records, lc.Name())
		if view.Focus.Found() {
			view.Center, view.Zoom = *view.Focus.Center, view.Focus.Zoom
		}
	}
	return view
}
