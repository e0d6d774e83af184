package domain

import "time"

// TimestampField names the record timestamp a day bucket is built from.
type TimestampField int

const (
	FieldScheduledAt TimestampField = iota
	FieldCreatedAt
)

// Timestamp returns the selected timestamp of r, or false when it is missing.
func (f TimestampField) Timestamp(r OutageRecord) (time.Time, bool) {
	switch f {
	case FieldScheduledAt:
		if r.ScheduledAt == nil || r.ScheduledAt.IsZero() {
			return time.Time{}, false
		}
		return *r.ScheduledAt, true
	case FieldCreatedAt:
		if r.CreatedAt.IsZero() {
			return time.Time{}, false
		}
		return r.CreatedAt, true
	default:
		return time.Time{}, false
	}
}

// SameDay reports whether a and b fall on the same calendar date in loc.
// A nil loc means time.Local.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// BucketForDay returns the records whose field falls on day, in input order.
// Records missing the field are excluded.
func BucketForDay(records []OutageRecord, day time.Time, field TimestampField, loc *time.Location) []OutageRecord {
	out := make([]OutageRecord, 0)
	for _, r := range records {
		ts, ok := field.Timestamp(r)
		if ok && SameDay(ts, day, loc) {
			out = append(out, r)
		}
	}
	return out
}

// DaysIn returns the number of days in the given month, leap years included.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CalendarCell is one cell of a month grid. Leading blank cells have Day 0
// and a zero Date.
type CalendarCell struct {
	Day  int       `json:"day"`
	Date time.Time `json:"date,omitzero"`
}

// Blank reports whether the cell pads the first week.
func (c CalendarCell) Blank() bool { return c.Day == 0 }

// MonthGrid is the cell layout of one month, weeks starting on Sunday.
type MonthGrid struct {
	Year    int            `json:"year"`
	Month   time.Month     `json:"month"`
	Leading int            `json:"leading"`
	Days    int            `json:"days"`
	Cells   []CalendarCell `json:"cells"`
}

// BuildMonthGrid lays out a month: one blank cell per weekday before the
// first (0 = Sunday), then one cell per day at midnight in loc.
func BuildMonthGrid(year int, month time.Month, loc *time.Location) MonthGrid {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	// Normalise out-of-range months such as 13 or 0.
	year, month = first.Year(), first.Month()

	g := MonthGrid{
		Year:    year,
		Month:   month,
		Leading: int(first.Weekday()),
		Days:    DaysIn(year, month),
	}
	g.Cells = make([]CalendarCell, 0, g.Leading+g.Days)
	for range g.Leading {
		g.Cells = append(g.Cells, CalendarCell{})
	}
	for d := 1; d <= g.Days; d++ {
		g.Cells = append(g.Cells, CalendarCell{Day: d, Date: time.Date(year, month, d, 0, 0, 0, 0, loc)})
	}
	return g
}

// ShiftMonth moves a year/month pair by offset months, rolling the year.
func ShiftMonth(year int, month time.Month, offset int) (int, time.Month) {
	t := time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}
