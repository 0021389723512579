package persistence

import "context"

// EventRepository persists calendar events. Implementations must return
// records ordered by StartUTC ascending with ties broken by ID, and must
// never hand out aliases to internal state.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
}
