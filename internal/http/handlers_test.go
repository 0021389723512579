package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/weekview-calendar/internal/persistence/memory"
	"github.com/example/weekview-calendar/internal/testfixtures"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	factory := testfixtures.NewServiceFactory(
		testfixtures.WithClock(testfixtures.NewClock(time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC))),
	)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := factory.NewEventService(testfixtures.EventServiceDeps{
		Events: memory.NewStore(),
		Logger: logger,
	})
	handler := NewEventHandler(service, "UTC", logger)

	return NewRouter(RouterConfig{
		Events:     handler,
		Middleware: []func(http.Handler) http.Handler{RequestLogger(logger)},
	})
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func eventBody(title, start, end, tz string) map[string]string {
	return map[string]string{
		"title":      title,
		"start_time": start,
		"end_time":   end,
		"timezone":   tz,
	}
}

func TestEventHandler_Create(t *testing.T) {
	t.Parallel()

	t.Run("creates an event and normalizes to UTC", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPost, "/events",
			eventBody("Standup", "2024-01-15T14:00", "2024-01-15T15:00", "America/New_York"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			StartUTC string `json:"start_utc"`
			EndUTC   string `json:"end_utc"`
			Timezone string `json:"timezone"`
		}
		decodeBody(t, rec, &got)
		if got.ID != "event-1" {
			t.Fatalf("id = %q, want event-1", got.ID)
		}
		if got.StartUTC != "2024-01-15T19:00:00Z" || got.EndUTC != "2024-01-15T20:00:00Z" {
			t.Fatalf("bounds = %s .. %s, want 19:00Z .. 20:00Z", got.StartUTC, got.EndUTC)
		}
		if got.Timezone != "America/New_York" {
			t.Fatalf("timezone = %q", got.Timezone)
		}
	})

	t.Run("rejects an overlap with 409 and the conflicting events", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPost, "/events",
			eventBody("First", "2024-01-15T10:00", "2024-01-15T11:00", "UTC"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}

		rec = doJSON(t, handler, http.MethodPost, "/events",
			eventBody("Second", "2024-01-15T10:30", "2024-01-15T11:30", "UTC"))
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got struct {
			Message   string `json:"message"`
			Conflicts []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"conflicts"`
		}
		decodeBody(t, rec, &got)
		if len(got.Conflicts) != 1 || got.Conflicts[0].ID != "event-1" || got.Conflicts[0].Title != "First" {
			t.Fatalf("conflicts = %+v", got.Conflicts)
		}
	})

	t.Run("allows touching intervals", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPost, "/events",
			eventBody("Morning", "2024-01-15T10:00", "2024-01-15T11:00", "UTC"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}
		rec = doJSON(t, handler, http.MethodPost, "/events",
			eventBody("Adjacent", "2024-01-15T11:00", "2024-01-15T12:00", "UTC"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("reports field errors with 422", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPost, "/events",
			eventBody("", "2024-01-15T10:00", "2024-01-15T11:00", "Mars/Olympus_Mons"))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got struct {
			Errors map[string]string `json:"errors"`
		}
		decodeBody(t, rec, &got)
		if _, ok := got.Errors["title"]; !ok {
			t.Fatalf("expected title error, got %v", got.Errors)
		}
		if _, ok := got.Errors["timezone"]; !ok {
			t.Fatalf("expected timezone error, got %v", got.Errors)
		}
	})

	t.Run("rejects a start at or after the end", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPost, "/events",
			eventBody("Backwards", "2024-01-15T11:00", "2024-01-15T10:00", "UTC"))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got struct {
			Errors map[string]string `json:"errors"`
		}
		decodeBody(t, rec, &got)
		if _, ok := got.Errors["time"]; !ok {
			t.Fatalf("expected time error, got %v", got.Errors)
		}
	})

	t.Run("rejects an undecodable body with 400", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestEventHandler_UpdateDelete(t *testing.T) {
	t.Parallel()

	t.Run("updates an event in place", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPost, "/events",
			eventBody("Planning", "2024-01-15T10:00", "2024-01-15T11:00", "UTC"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}

		rec = doJSON(t, handler, http.MethodPut, "/events/event-1",
			eventBody("Planning (moved)", "2024-01-15T10:30", "2024-01-15T11:30", "UTC"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			StartUTC string `json:"start_utc"`
		}
		decodeBody(t, rec, &got)
		if got.ID != "event-1" || got.Title != "Planning (moved)" || got.StartUTC != "2024-01-15T10:30:00Z" {
			t.Fatalf("unexpected body: %+v", got)
		}
	})

	t.Run("updating an unknown id reports 404", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPut, "/events/missing",
			eventBody("Ghost", "2024-01-15T10:00", "2024-01-15T11:00", "UTC"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("delete is idempotent only in effect", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPost, "/events",
			eventBody("Temp", "2024-01-15T10:00", "2024-01-15T11:00", "UTC"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}

		rec = doJSON(t, handler, http.MethodDelete, "/events/event-1", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("first delete status = %d", rec.Code)
		}
		rec = doJSON(t, handler, http.MethodDelete, "/events/event-1", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("second delete status = %d", rec.Code)
		}
	})

	t.Run("fetches a single event", func(t *testing.T) {
		t.Parallel()
		handler := newTestHandler(t)

		rec := doJSON(t, handler, http.MethodPost, "/events",
			eventBody("Lookup", "2024-01-15T10:00", "2024-01-15T11:00", "UTC"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}

		rec = doJSON(t, handler, http.MethodGet, "/events/event-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, handler, http.MethodGet, "/events/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("unknown id status = %d", rec.Code)
		}
	})
}

func TestEventHandler_List(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)

	seeds := []map[string]string{
		eventBody("Early", "2024-01-15T08:00", "2024-01-15T09:00", "UTC"),
		eventBody("Late", "2024-01-15T17:00", "2024-01-15T18:00", "UTC"),
	}
	for _, seed := range seeds {
		if rec := doJSON(t, handler, http.MethodPost, "/events", seed); rec.Code != http.StatusCreated {
			t.Fatalf("seed %q status = %d", seed["title"], rec.Code)
		}
	}

	t.Run("unbounded list returns everything in order", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/events", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got eventListResponse
		decodeBody(t, rec, &got)
		if len(got.Events) != 2 || got.Events[0].Title != "Early" || got.Events[1].Title != "Late" {
			t.Fatalf("events = %+v", got.Events)
		}
	})

	t.Run("half-open range excludes touching events", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet,
			"/events?start=2024-01-15T09:00&end=2024-01-15T17:00&timezone=UTC", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got eventListResponse
		decodeBody(t, rec, &got)
		if len(got.Events) != 0 {
			t.Fatalf("expected no events, got %+v", got.Events)
		}
	})

	t.Run("invalid bound reports 422", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/events?start=whenever", nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestEventHandler_Week(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)

	seeds := []map[string]string{
		eventBody("Kickoff", "2024-01-15T14:00", "2024-01-15T15:00", "America/New_York"),
		eventBody("Review", "2024-01-18T09:00", "2024-01-18T10:00", "America/New_York"),
		eventBody("Next week", "2024-01-22T09:00", "2024-01-22T10:00", "America/New_York"),
	}
	for _, seed := range seeds {
		if rec := doJSON(t, handler, http.MethodPost, "/events", seed); rec.Code != http.StatusCreated {
			t.Fatalf("seed %q status = %d, body = %s", seed["title"], rec.Code, rec.Body.String())
		}
	}

	t.Run("returns the Monday-start week with civil projections", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet,
			"/events/week?date=2024-01-18&timezone=America/New_York", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var got weekViewResponse
		decodeBody(t, rec, &got)
		if got.StartOfWeek != "2024-01-15T05:00:00Z" || got.EndOfWeek != "2024-01-22T05:00:00Z" {
			t.Fatalf("week bounds = %s .. %s", got.StartOfWeek, got.EndOfWeek)
		}
		if len(got.Events) != 2 {
			t.Fatalf("events = %+v", got.Events)
		}
		if got.Events[0].Title != "Kickoff" || got.Events[0].StartLocal != "2024-01-15T14:00:00" {
			t.Fatalf("first event = %+v", got.Events[0])
		}
		if got.Events[1].Title != "Review" || got.Events[1].EndLocal != "2024-01-18T10:00:00" {
			t.Fatalf("second event = %+v", got.Events[1])
		}
	})

	t.Run("invalid timezone reports 422", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/events/week?timezone=Nowhere/Void", nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestRouter_MethodDispatch(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)

	cases := []struct {
		method string
		target string
	}{
		{http.MethodDelete, "/events"},
		{http.MethodPost, "/events/week"},
		{http.MethodPost, "/events/some-id"},
	}
	for _, tc := range cases {
		rec := doJSON(t, handler, tc.method, tc.target, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: status = %d", tc.method, tc.target, rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow == "" {
			t.Fatalf("%s %s: missing Allow header", tc.method, tc.target)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, "/events/deep/path", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nested path status = %d", rec.Code)
	}
}
