package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/weekview-calendar/internal/persistence"
	"github.com/example/weekview-calendar/internal/testfixtures"
)

func utc(hour int) time.Time {
	return time.Date(2024, 1, 15, hour, 0, 0, 0, time.UTC)
}

func sampleEvent(id string, startHour, endHour int) persistence.Event {
	return testfixtures.NewEvent(
		testfixtures.WithEventID(id),
		testfixtures.WithTitle("event "+id),
		testfixtures.WithDescription("sample description"),
		testfixtures.WithInterval(utc(startHour), utc(endHour)),
		testfixtures.WithTimezone("America/New_York"),
	).Record()
}

func TestEventRepository_CreateGetRoundTrip(t *testing.T) {
	repo := testfixtures.NewSQLiteHarness(t).Events
	ctx := context.Background()

	want := sampleEvent("a", 19, 20)
	if err := repo.CreateEvent(ctx, want); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	got, err := repo.GetEvent(ctx, "a")
	if err != nil {
		t.Fatalf("GetEvent returned error: %v", err)
	}
	if got.Title != want.Title || got.Timezone != want.Timezone {
		t.Fatalf("GetEvent = %+v, want %+v", got, want)
	}
	if got.Description == nil || *got.Description != *want.Description {
		t.Fatalf("description not round-tripped: %v", got.Description)
	}
	if !got.StartUTC.Equal(want.StartUTC) || !got.EndUTC.Equal(want.EndUTC) {
		t.Fatalf("instants not round-tripped: %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at not round-tripped: %v", got.CreatedAt)
	}

	if err := repo.CreateEvent(ctx, want); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestEventRepository_NilDescription(t *testing.T) {
	repo := testfixtures.NewSQLiteHarness(t).Events
	ctx := context.Background()

	event := sampleEvent("a", 19, 20)
	event.Description = nil
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	got, err := repo.GetEvent(ctx, "a")
	if err != nil {
		t.Fatalf("GetEvent returned error: %v", err)
	}
	if got.Description != nil {
		t.Fatalf("expected nil description, got %q", *got.Description)
	}
}

func TestEventRepository_CheckConstraint(t *testing.T) {
	repo := testfixtures.NewSQLiteHarness(t).Events
	ctx := context.Background()

	inverted := sampleEvent("bad", 20, 19)
	if err := repo.CreateEvent(ctx, inverted); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestEventRepository_Update(t *testing.T) {
	repo := testfixtures.NewSQLiteHarness(t).Events
	ctx := context.Background()

	original := sampleEvent("a", 19, 20)
	if err := repo.CreateEvent(ctx, original); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	updated := sampleEvent("a", 21, 22)
	updated.Title = "renamed"
	if err := repo.UpdateEvent(ctx, updated); err != nil {
		t.Fatalf("UpdateEvent returned error: %v", err)
	}

	got, err := repo.GetEvent(ctx, "a")
	if err != nil {
		t.Fatalf("GetEvent returned error: %v", err)
	}
	if got.Title != "renamed" || !got.StartUTC.Equal(utc(21)) {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("created_at mutated on update: %v", got.CreatedAt)
	}

	if err := repo.UpdateEvent(ctx, sampleEvent("missing", 1, 2)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_Delete(t *testing.T) {
	repo := testfixtures.NewSQLiteHarness(t).Events
	ctx := context.Background()

	if err := repo.CreateEvent(ctx, sampleEvent("a", 19, 20)); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	if err := repo.DeleteEvent(ctx, "a"); err != nil {
		t.Fatalf("DeleteEvent returned error: %v", err)
	}
	if err := repo.DeleteEvent(ctx, "a"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeated delete, got %v", err)
	}
	if _, err := repo.GetEvent(ctx, "a"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEventRepository_ListEvents(t *testing.T) {
	repo := testfixtures.NewSQLiteHarness(t).Events
	ctx := context.Background()

	for _, ev := range []persistence.Event{
		sampleEvent("b", 20, 21),
		sampleEvent("a", 19, 20),
		sampleEvent("z", 19, 20),
		sampleEvent("late", 23, 24),
	} {
		if err := repo.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("CreateEvent(%s) returned error: %v", ev.ID, err)
		}
	}

	t.Run("full listing is ordered by start then id", func(t *testing.T) {
		events, err := repo.ListEvents(ctx, persistence.EventFilter{})
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		want := []string{"a", "z", "b", "late"}
		if len(events) != len(want) {
			t.Fatalf("expected %d events, got %d", len(want), len(events))
		}
		for i := range want {
			if events[i].ID != want[i] {
				t.Fatalf("order mismatch at %d: got %s, want %s", i, events[i].ID, want[i])
			}
		}
	})

	t.Run("half-open range excludes touching events", func(t *testing.T) {
		start := utc(21)
		end := utc(23)
		events, err := repo.ListEvents(ctx, persistence.EventFilter{StartsAfter: &start, EndsBefore: &end})
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		// "b" ends exactly at 21:00 and "late" starts exactly at 23:00.
		if len(events) != 0 {
			t.Fatalf("expected no events, got %v", events)
		}
	})

	t.Run("range includes partially overlapping events", func(t *testing.T) {
		start := utc(19)
		end := utc(21)
		events, err := repo.ListEvents(ctx, persistence.EventFilter{StartsAfter: &start, EndsBefore: &end})
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
	})
}
