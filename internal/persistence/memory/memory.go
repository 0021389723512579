// Package memory provides an in-memory EventRepository used by tests and
// ephemeral runs. Semantics mirror the SQLite implementation: ordered range
// queries, defensive copies, and the shared sentinel errors.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/example/weekview-calendar/internal/persistence"
)

// Store is a map-backed EventRepository. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	events map[string]persistence.Event
}

// NewStore returns an empty in-memory event store.
func NewStore() *Store {
	return &Store{events: make(map[string]persistence.Event)}
}

// CreateEvent stores a new event.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}
	if !event.StartUTC.Before(event.EndUTC) {
		return persistence.ErrConstraintViolation
	}

	s.events[event.ID] = cloneEvent(event)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return cloneEvent(event), nil
}

// UpdateEvent replaces the mutable fields of an existing event. ID and
// CreatedAt are preserved from the stored record.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[event.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if !event.StartUTC.Before(event.EndUTC) {
		return persistence.ErrConstraintViolation
	}

	event.CreatedAt = existing.CreatedAt
	s.events[event.ID] = cloneEvent(event)
	return nil
}

// DeleteEvent removes an event by ID.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// ListEvents returns events matching the filter ordered by StartUTC then ID.
func (s *Store) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]persistence.Event, 0, len(s.events))
	for _, event := range s.events {
		if !matchesFilter(event, filter) {
			continue
		}
		events = append(events, cloneEvent(event))
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].StartUTC.Equal(events[j].StartUTC) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartUTC.Before(events[j].StartUTC)
	})

	return events, nil
}

func matchesFilter(event persistence.Event, filter persistence.EventFilter) bool {
	if filter.StartsAfter != nil && !event.EndUTC.After(*filter.StartsAfter) {
		return false
	}
	if filter.EndsBefore != nil && !event.StartUTC.Before(*filter.EndsBefore) {
		return false
	}
	return true
}

func cloneEvent(event persistence.Event) persistence.Event {
	if event.Description != nil {
		description := *event.Description
		event.Description = &description
	}
	return event
}
