// Package domain models power-outage announcements and the locality-aware
// relevance rules used to present them to residents.
//
// # Data Source
//
// Announcements are rows of the hosted Postgres table "announcements". They are
// published by the utility (scheduled maintenance) or promoted from resident
// reports (unscheduled outages). The service never writes them; every view
// works on a read-only snapshot that is refetched whenever the change feed fires.
//
// # Locality Conventions
//
// A locality is a barangay, the smallest administrative unit. Locality names are
// free text and entered by hand, so matching is a case-insensitive substring
// test rather than equality:
//
//	"Riverside" matches a primary locality of "Riverside Heights"
//	"Riverside" matches an affected area of "Upper Riverside"
//
// A profile stores the user's barangay either as a display name or as a numeric
// id into the "barangays" table. The literal "Not set" means no locality. See
// [ResolveLocality].
//
// Two containment directions exist. [MatchStrict] asks whether the target is
// contained in the record field and drives the dashboard and the calendar.
// [MatchBidirectional] also accepts a field contained in the target and drives
// the map's "my area" focus, where short area names such as "Session" must
// match a profile value like "Session Road Area".
//
// # Status Vocabulary
//
//	reported     resident report confirmed by the utility   (active)
//	ongoing      crews on site                               (active)
//	completed    power restored
//	scheduled    planned maintenance announced ahead of time
//	unscheduled  outage without a planned window
//
// Statuses are stored with arbitrary capitalisation ("Ongoing", "ongoing").
// Anything else classifies as [StatusUnknown] and is kept verbatim for display.
//
// # Ranking
//
// The dashboard floats what matters to the viewer:
//
//	100  relevant to the viewer's locality and active
//	 50  relevant but not active
//	  0  everything else, or no locality
//
// Ties, including the all-zero case for guests, fall back to newest first.
//
// # Calendar Days
//
// Day membership is decided in the viewer's time zone by comparing year, month
// and day of month. Time of day never matters, so 23:59 and 00:00 on the same
// date share a bucket.
package domain
