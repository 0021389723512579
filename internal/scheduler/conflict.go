// Package scheduler holds the interval mathematics behind conflict detection
// and range queries. Bookings are compared on absolute UTC instants only; the
// authoring timezone never participates.
package scheduler

import (
	"sort"
	"time"
)

// Booking is the minimal view of an event the conflict detector needs.
type Booking struct {
	ID    string
	Title string
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Touching endpoints do not overlap: an event ending exactly when
// another starts is permitted.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// DetectConflicts returns every existing booking whose interval overlaps the
// candidate's, ordered by start time ascending with ties broken by ID. A
// booking sharing the candidate's ID is skipped so an event can be moved
// without conflicting with its own prior interval.
func DetectConflicts(existing []Booking, candidate Booking) []Booking {
	var conflicts []Booking
	for _, booking := range existing {
		if booking.ID == candidate.ID {
			continue
		}
		if Overlaps(candidate.Start, candidate.End, booking.Start, booking.End) {
			conflicts = append(conflicts, booking)
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Start.Equal(conflicts[j].Start) {
			return conflicts[i].ID < conflicts[j].ID
		}
		return conflicts[i].Start.Before(conflicts[j].Start)
	})

	return conflicts
}
