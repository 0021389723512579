package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/weekview-calendar/internal/persistence"
)

// EventRepository implements persistence.EventRepository on a Store.
type EventRepository struct {
	store *Store
}

// NewEventRepository wires a repository to an open store.
func NewEventRepository(store *Store) *EventRepository {
	return &EventRepository{store: store}
}

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (id, title, description, start_utc, end_utc, timezone, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`

		var description sql.NullString
		if event.Description != nil {
			description = sql.NullString{String: *event.Description, Valid: true}
		}

		_, err := tx.ExecContext(ctx, query,
			event.ID,
			event.Title,
			description,
			formatInstant(event.StartUTC),
			formatInstant(event.EndUTC),
			event.Timezone,
			formatInstant(event.CreatedAt),
		)
		return mapError(err)
	})
}

// UpdateEvent replaces the mutable fields of an existing event. The stored
// created_at is left untouched.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}

	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE events
			SET title = ?, description = ?, start_utc = ?, end_utc = ?, timezone = ?
			WHERE id = ?
		`

		var description sql.NullString
		if event.Description != nil {
			description = sql.NullString{String: *event.Description, Valid: true}
		}

		result, err := tx.ExecContext(ctx, query,
			event.Title,
			description,
			formatInstant(event.StartUTC),
			formatInstant(event.EndUTC),
			event.Timezone,
			event.ID,
		)
		if err != nil {
			return mapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, title, description, start_utc, end_utc, timezone, created_at
		FROM events
		WHERE id = ?
	`

	row := r.store.db.QueryRowContext(ctx, query, id)
	event, err := scanEvent(row.Scan)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}
	return event, nil
}

// DeleteEvent removes an event by ID. Deleting an absent event reports
// ErrNotFound rather than succeeding silently.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
		if err != nil {
			return mapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// ListEvents returns events intersecting the filter's half-open range,
// ordered by start_utc then id.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query := `
		SELECT id, title, description, start_utc, end_utc, timezone, created_at
		FROM events
	`

	var conditions []string
	var args []any

	if filter.StartsAfter != nil {
		conditions = append(conditions, "end_utc > ?")
		args = append(args, formatInstant(*filter.StartsAfter))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "start_utc < ?")
		args = append(args, formatInstant(*filter.EndsBefore))
	}

	if len(conditions) > 0 {
		query += " WHERE " + conditions[0]
		for _, condition := range conditions[1:] {
			query += " AND " + condition
		}
	}
	query += " ORDER BY start_utc ASC, id ASC"

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, mapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return events, nil
}

func scanEvent(scan func(dest ...any) error) (persistence.Event, error) {
	var event persistence.Event
	var description sql.NullString
	var startStr, endStr, createdStr string

	if err := scan(
		&event.ID,
		&event.Title,
		&description,
		&startStr,
		&endStr,
		&event.Timezone,
		&createdStr,
	); err != nil {
		return persistence.Event{}, err
	}

	if description.Valid {
		event.Description = &description.String
	}

	var err error
	if event.StartUTC, err = parseInstant(startStr, "start_utc"); err != nil {
		return persistence.Event{}, err
	}
	if event.EndUTC, err = parseInstant(endStr, "end_utc"); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseInstant(createdStr, "created_at"); err != nil {
		return persistence.Event{}, err
	}

	return event, nil
}
