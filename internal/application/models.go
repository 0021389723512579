package application

import "time"

// EventInput captures caller provided event fields. Start and End are civil
// date/time strings interpreted in Timezone.
type EventInput struct {
	Title       string
	Description string
	Start       string
	End         string
	Timezone    string
}

// Event represents a persisted calendar event. StartUTC and EndUTC are
// absolute instants; Timezone is the authoring zone kept for redisplay.
type Event struct {
	ID          string
	Title       string
	Description string
	StartUTC    time.Time
	EndUTC      time.Time
	Timezone    string
	CreatedAt   time.Time
}

// WeekView bundles the UTC bounds of a Monday-start week with the ordered
// events intersecting it. Events carry UTC instants only; civil projection
// for display is the adapter's job.
type WeekView struct {
	StartUTC time.Time
	EndUTC   time.Time
	Timezone string
	Events   []Event
}
