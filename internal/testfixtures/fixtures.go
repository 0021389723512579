// Package testfixtures provides deterministic clocks, identifier generators,
// and event builders shared by persistence, application, and handler tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/weekview-calendar/internal/application"
	"github.com/example/weekview-calendar/internal/persistence"
)

var eventCounter uint64

// referenceTime is a Wednesday; the surrounding week runs 2024-01-01 (Monday)
// through 2024-01-08 exclusive.
var referenceTime = time.Date(2024, time.January, 3, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// EventFixture is a deterministic event that can be materialised as either an
// application model or a persistence record.
type EventFixture struct {
	ID          string
	Title       string
	Description string
	StartUTC    time.Time
	EndUTC      time.Time
	Timezone    string
	CreatedAt   time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEvent builds an event fixture. Without options, each call yields a
// one-hour event starting an hour after the previous one, so sequentially
// generated fixtures never overlap.
func NewEvent(opts ...EventOption) EventFixture {
	n := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Truncate(time.Second).Add(time.Duration(n) * time.Hour)

	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%d", n),
		Title:     fmt.Sprintf("Event %d", n),
		StartUTC:  start,
		EndUTC:    start.Add(time.Hour),
		Timezone:  "UTC",
		CreatedAt: referenceTime.Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated identifier.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) { f.ID = id }
}

// WithTitle overrides the generated title.
func WithTitle(title string) EventOption {
	return func(f *EventFixture) { f.Title = title }
}

// WithDescription sets the optional description.
func WithDescription(description string) EventOption {
	return func(f *EventFixture) { f.Description = description }
}

// WithInterval sets the UTC bounds.
func WithInterval(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.StartUTC = start
		f.EndUTC = end
	}
}

// WithTimezone sets the display timezone recorded with the event.
func WithTimezone(tz string) EventOption {
	return func(f *EventFixture) { f.Timezone = tz }
}

// Model converts the fixture to the application representation.
func (f EventFixture) Model() application.Event {
	return application.Event{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		StartUTC:    f.StartUTC,
		EndUTC:      f.EndUTC,
		Timezone:    f.Timezone,
		CreatedAt:   f.CreatedAt,
	}
}

// Record converts the fixture to the persistence representation.
func (f EventFixture) Record() persistence.Event {
	var description *string
	if f.Description != "" {
		value := f.Description
		description = &value
	}
	return persistence.Event{
		ID:          f.ID,
		Title:       f.Title,
		Description: description,
		StartUTC:    f.StartUTC,
		EndUTC:      f.EndUTC,
		Timezone:    f.Timezone,
		CreatedAt:   f.CreatedAt,
	}
}
