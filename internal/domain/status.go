package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Status is the classified form of a free-text status label.
type Status string

const (
	StatusReported    Status = "reported"
	StatusOngoing     Status = "ongoing"
	StatusCompleted   Status = "completed"
	StatusScheduled   Status = "scheduled"
	StatusUnscheduled Status = "unscheduled"
	StatusUnknown     Status = "unknown"
)

// ParseStatus classifies a label case-insensitively. Unrecognised labels
// become StatusUnknown.
func ParseStatus(label string) Status {
	switch s := Status(strings.ToLower(strings.TrimSpace(label))); s {
	case StatusReported, StatusOngoing, StatusCompleted, StatusScheduled, StatusUnscheduled:
		return s
	default:
		return StatusUnknown
	}
}

// Active reports whether the status raises a relevant record to the top tier.
func (s Status) Active() bool {
	return s == StatusReported || s == StatusOngoing
}

// Class is the presentation class for a status pill, e.g. "status-ongoing".
func (s Status) Class() string {
	return "status-" + string(s)
}

// Color is the map marker colour: amber while crews are on site, red otherwise.
func (s Status) Color() string {
	if s == StatusOngoing {
		return "#FFC107"
	}
	return "#DC3545"
}

// FormatStatus capitalises the first letter of a raw label for display and
// returns "N/A" for an empty one.
func FormatStatus(label string) string {
	if label == "" {
		return "N/A"
	}
	r, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(r)) + label[size:]
}
