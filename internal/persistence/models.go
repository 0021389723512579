package persistence

import "time"

// Event is the persisted representation of a calendar event. StartUTC and
// EndUTC are absolute instants; Timezone records the authoring zone for
// redisplay only and never participates in interval comparison.
type Event struct {
	ID          string
	Title       string
	Description *string
	StartUTC    time.Time
	EndUTC      time.Time
	Timezone    string
	CreatedAt   time.Time
}

// EventFilter narrows ListEvents to events intersecting a half-open UTC
// range: an event matches when EndUTC > StartsAfter and StartUTC < EndsBefore.
// Nil bounds leave that side open.
type EventFilter struct {
	StartsAfter *time.Time
	EndsBefore  *time.Time
}
