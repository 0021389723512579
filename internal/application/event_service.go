package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/weekview-calendar/internal/persistence"
	"github.com/example/weekview-calendar/internal/scheduler"
	"github.com/example/weekview-calendar/internal/timezone"
)

// EventService orchestrates validation, timezone normalization, conflict
// enforcement, and persistence for calendar events. It is the authoritative
// keeper of the no-overlap invariant.
type EventService struct {
	// mu serializes every mutating operation so no two writers can observe
	// each other's intervals as absent between the conflict scan and the
	// persist. Reads bypass it; repositories never expose partial writes.
	mu sync.Mutex

	events      persistence.EventRepository
	normalizer  timezone.Normalizer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events persistence.EventRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, idGenerator, now, nil)
}

// NewEventServiceWithLogger behaves like NewEventService and attaches a base
// logger used when the context carries none.
func NewEventServiceWithLogger(events persistence.EventRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateEvent validates and normalizes the input, checks the interval against
// every stored event, and persists on success. The conflict check and the
// persist run as one critical section.
func (s *EventService) CreateEvent(ctx context.Context, input EventInput) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "create")

	startUTC, endUTC, err := s.normalizeInput(input)
	if err != nil {
		logger.InfoContext(ctx, "create rejected", "reason", ErrorKind(err))
		return Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkConflicts(ctx, "", startUTC, endUTC); err != nil {
		logger.InfoContext(ctx, "create rejected", "reason", ErrorKind(err))
		return Event{}, err
	}

	event := Event{
		ID:          s.idGenerator(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		StartUTC:    startUTC,
		EndUTC:      endUTC,
		Timezone:    strings.TrimSpace(input.Timezone),
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	}

	if err := s.events.CreateEvent(ctx, toRecord(event)); err != nil {
		return Event{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "event created", "event_id", event.ID)
	return event, nil
}

// UpdateEvent applies the create pipeline to an existing event, excluding the
// event itself from the conflict scan so it can be moved freely. ID and
// CreatedAt never change.
func (s *EventService) UpdateEvent(ctx context.Context, id string, input EventInput) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "update", "event_id", id)

	startUTC, endUTC, err := s.normalizeInput(input)
	if err != nil {
		logger.InfoContext(ctx, "update rejected", "reason", ErrorKind(err))
		return Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapRepoError(err)
	}

	if err := s.checkConflicts(ctx, id, startUTC, endUTC); err != nil {
		logger.InfoContext(ctx, "update rejected", "reason", ErrorKind(err))
		return Event{}, err
	}

	event := Event{
		ID:          existing.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		StartUTC:    startUTC,
		EndUTC:      endUTC,
		Timezone:    strings.TrimSpace(input.Timezone),
		CreatedAt:   existing.CreatedAt,
	}

	if err := s.events.UpdateEvent(ctx, toRecord(event)); err != nil {
		return Event{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "event updated", "event_id", event.ID)
	return event, nil
}

// DeleteEvent removes an event. Deleting an unknown or already deleted id
// reports ErrNotFound.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if s == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "delete", "event_id", id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return mapRepoError(err)
	}

	logger.InfoContext(ctx, "event deleted")
	return nil
}

// GetEvent retrieves a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	record, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapRepoError(err)
	}
	return fromRecord(record), nil
}

// ListRange returns the events intersecting [startUTC, endUTC), ordered by
// start time ascending with ties broken by id. Read-only.
func (s *EventService) ListRange(ctx context.Context, startUTC, endUTC time.Time) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	filter := persistence.EventFilter{}
	if !startUTC.IsZero() {
		start := startUTC
		filter.StartsAfter = &start
	}
	if !endUTC.IsZero() {
		end := endUTC
		filter.EndsBefore = &end
	}

	records, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}

	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, fromRecord(record))
	}
	return events, nil
}

// WeekView computes the Monday-start week containing the anchor civil date in
// the given zone and returns its UTC bounds with the ordered events inside.
func (s *EventService) WeekView(ctx context.Context, anchor, tz string) (WeekView, error) {
	if s == nil || s.events == nil {
		return WeekView{}, fmt.Errorf("event repository not configured")
	}

	if strings.TrimSpace(anchor) == "" {
		anchor = s.now().In(time.UTC).Format("2006-01-02")
		if loc, err := time.LoadLocation(strings.TrimSpace(tz)); err == nil {
			anchor = s.now().In(loc).Format("2006-01-02")
		}
	}

	startUTC, endUTC, err := s.normalizer.WeekBounds(anchor, tz)
	if err != nil {
		vErr := &ValidationError{}
		switch {
		case errors.Is(err, timezone.ErrInvalidTimezone):
			vErr.Add("timezone", err.Error())
		default:
			vErr.Add("date", err.Error())
		}
		return WeekView{}, vErr
	}

	events, err := s.ListRange(ctx, startUTC, endUTC)
	if err != nil {
		return WeekView{}, err
	}

	return WeekView{
		StartUTC: startUTC,
		EndUTC:   endUTC,
		Timezone: strings.TrimSpace(tz),
		Events:   events,
	}, nil
}

// normalizeInput validates the caller provided fields and converts the civil
// times to UTC. All failures are reported as field level validation errors.
func (s *EventService) normalizeInput(input EventInput) (time.Time, time.Time, error) {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.Add("title", "title is required")
	}

	startUTC, err := s.normalizer.ToUTC(input.Start, input.Timezone)
	if err != nil {
		vErr.Add(fieldForTimeError(err, "start"), err.Error())
	}

	endUTC, err := s.normalizer.ToUTC(input.End, input.Timezone)
	if err != nil {
		vErr.Add(fieldForTimeError(err, "end"), err.Error())
	}

	if vErr.HasErrors() {
		return time.Time{}, time.Time{}, vErr
	}

	// Instants persist at whole-second precision; truncate before the range
	// check so the returned event matches the stored row and sub-second
	// intervals are rejected rather than collapsing to zero length in storage.
	startUTC = startUTC.Truncate(time.Second)
	endUTC = endUTC.Truncate(time.Second)

	if !startUTC.Before(endUTC) {
		vErr.Add("time", "start must be before end")
		return time.Time{}, time.Time{}, vErr
	}

	return startUTC, endUTC, nil
}

// checkConflicts scans the stored events intersecting [startUTC, endUTC) and
// fails with a ConflictError carrying all of them. excludeID skips the event
// being updated. Callers must hold mu.
func (s *EventService) checkConflicts(ctx context.Context, excludeID string, startUTC, endUTC time.Time) error {
	records, err := s.events.ListEvents(ctx, persistence.EventFilter{
		StartsAfter: &startUTC,
		EndsBefore:  &endUTC,
	})
	if err != nil {
		return mapRepoError(err)
	}

	existing := make([]scheduler.Booking, 0, len(records))
	byID := make(map[string]persistence.Event, len(records))
	for _, record := range records {
		existing = append(existing, scheduler.Booking{
			ID:    record.ID,
			Title: record.Title,
			Start: record.StartUTC,
			End:   record.EndUTC,
		})
		byID[record.ID] = record
	}

	conflicts := scheduler.DetectConflicts(existing, scheduler.Booking{
		ID:    excludeID,
		Start: startUTC,
		End:   endUTC,
	})
	if len(conflicts) == 0 {
		return nil
	}

	cErr := &ConflictError{Conflicts: make([]Event, 0, len(conflicts))}
	for _, conflict := range conflicts {
		cErr.Conflicts = append(cErr.Conflicts, fromRecord(byID[conflict.ID]))
	}
	return cErr
}

func fieldForTimeError(err error, field string) string {
	if errors.Is(err, timezone.ErrInvalidTimezone) {
		return "timezone"
	}
	return field
}

func toRecord(event Event) persistence.Event {
	var description *string
	if event.Description != "" {
		value := event.Description
		description = &value
	}
	return persistence.Event{
		ID:          event.ID,
		Title:       event.Title,
		Description: description,
		StartUTC:    event.StartUTC,
		EndUTC:      event.EndUTC,
		Timezone:    event.Timezone,
		CreatedAt:   event.CreatedAt,
	}
}

func fromRecord(record persistence.Event) Event {
	description := ""
	if record.Description != nil {
		description = *record.Description
	}
	return Event{
		ID:          record.ID,
		Title:       record.Title,
		Description: description,
		StartUTC:    record.StartUTC,
		EndUTC:      record.EndUTC,
		Timezone:    record.Timezone,
		CreatedAt:   record.CreatedAt,
	}
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.Add("time", "start must be before end")
		return vErr
	}
	return err
}
