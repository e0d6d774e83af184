package domain

// RecordOrder is the database ordering of a fetch.
type RecordOrder int

const (
	OrderCreatedDesc RecordOrder = iota
	OrderScheduledAsc
)

// Criteria selects the announcements a view is built from.
type Criteria struct {
	// Type matches the announcement type case-insensitively when set.
	Type string
	// Statuses keeps only these statuses (case-insensitive) when non-empty.
	Statuses []string
	// ExcludeStatuses drops these statuses (case-insensitive).
	ExcludeStatuses    []string
	RequireSchedule    bool
	RequireCoordinates bool
	OrderBy            RecordOrder
	// Limit caps the row count; zero means no cap.
	Limit int
}

// DefaultCriteria returns the fetch criteria of a view.
func DefaultCriteria(v ViewKind) Criteria {
	switch v {
	case ViewCalendar:
		return Criteria{
			Type:            "scheduled",
			ExcludeStatuses: []string{string(StatusCompleted)},
			RequireSchedule: true,
			OrderBy:         OrderScheduledAsc,
		}
	case ViewMap:
		return Criteria{
			Statuses:           []string{string(StatusReported), string(StatusOngoing)},
			RequireCoordinates: true,
			OrderBy:            OrderCreatedDesc,
		}
	default:
		return Criteria{OrderBy: OrderCreatedDesc}
	}
}

// ViewTables lists the backend tables whose changes invalidate a view.
func ViewTables(v ViewKind) []string {
	if v == ViewDashboard {
		return []string{TableAnnouncements, TableAnnouncementImages, TableFeeders}
	}
	return []string{TableAnnouncements}
}
