package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/weekview-calendar/internal/application"
	"github.com/example/weekview-calendar/internal/timezone"
)

// eventService is the slice of the application layer the handler needs.
type eventService interface {
	CreateEvent(ctx context.Context, input application.EventInput) (application.Event, error)
	UpdateEvent(ctx context.Context, id string, input application.EventInput) (application.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	GetEvent(ctx context.Context, id string) (application.Event, error)
	ListRange(ctx context.Context, startUTC, endUTC time.Time) ([]application.Event, error)
	WeekView(ctx context.Context, anchor, tz string) (application.WeekView, error)
}

// EventHandler exposes event CRUD, range listing, and the weekly view over JSON.
type EventHandler struct {
	service         eventService
	normalizer      timezone.Normalizer
	defaultTimezone string
	responder       responder
	logger          *slog.Logger
}

// NewEventHandler builds a handler. defaultTimezone is used when a request
// omits the timezone parameter; empty means UTC.
func NewEventHandler(service eventService, defaultTimezone string, logger *slog.Logger) *EventHandler {
	if strings.TrimSpace(defaultTimezone) == "" {
		defaultTimezone = "UTC"
	}
	logger = defaultLogger(logger)
	return &EventHandler{
		service:         service,
		defaultTimezone: defaultTimezone,
		responder:       newResponder(logger),
		logger:          logger,
	}
}

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start_time"`
	End         string `json:"end_time"`
	Timezone    string `json:"timezone"`
}

type eventDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartUTC    string `json:"start_utc"`
	EndUTC      string `json:"end_utc"`
	Timezone    string `json:"timezone"`
	CreatedAt   string `json:"created_at"`
	StartLocal  string `json:"start_local,omitempty"`
	EndLocal    string `json:"end_local,omitempty"`
}

type eventListResponse struct {
	Events []eventDTO `json:"events"`
}

type weekViewResponse struct {
	StartOfWeek string     `json:"start_of_week"`
	EndOfWeek   string     `json:"end_of_week"`
	Timezone    string     `json:"timezone"`
	Events      []eventDTO `json:"events"`
}

// Create handles POST /events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "events", "create")

	input, ok := h.decodeEventRequest(ctx, w, r)
	if !ok {
		return
	}

	event, err := h.service.CreateEvent(ctx, input)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "event created", "event_id", event.ID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, toEventDTO(event))
}

// Update handles PUT /events/{id}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := EventIDFromContext(ctx)
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidEventID)
		return
	}
	logger := handlerLogger(ctx, h.logger, "events", "update", "event_id", id)

	input, decoded := h.decodeEventRequest(ctx, w, r)
	if !decoded {
		return
	}

	event, err := h.service.UpdateEvent(ctx, id, input)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "event updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, toEventDTO(event))
}

// Delete handles DELETE /events/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := EventIDFromContext(ctx)
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidEventID)
		return
	}
	logger := handlerLogger(ctx, h.logger, "events", "delete", "event_id", id)

	if err := h.service.DeleteEvent(ctx, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "event deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Get handles GET /events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := EventIDFromContext(ctx)
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toEventDTO(event))
}

// List handles GET /events. Optional start and end query parameters bound the
// range; they are civil date/times interpreted in the timezone parameter
// (default UTC). An absent bound leaves that side open.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	tz := strings.TrimSpace(query.Get("timezone"))
	if tz == "" {
		tz = h.defaultTimezone
	}

	vErr := &application.ValidationError{}
	var startUTC, endUTC time.Time
	if raw := strings.TrimSpace(query.Get("start")); raw != "" {
		ts, err := h.normalizer.ToUTC(raw, tz)
		if err != nil {
			vErr.Add(fieldForQueryError(err, "start"), err.Error())
		} else {
			startUTC = ts
		}
	}
	if raw := strings.TrimSpace(query.Get("end")); raw != "" {
		ts, err := h.normalizer.ToUTC(raw, tz)
		if err != nil {
			vErr.Add(fieldForQueryError(err, "end"), err.Error())
		} else {
			endUTC = ts
		}
	}
	if vErr.HasErrors() {
		h.responder.handleServiceError(ctx, w, vErr)
		return
	}

	events, err := h.service.ListRange(ctx, startUTC, endUTC)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, eventListResponse{Events: toEventDTOs(events)})
}

// Week handles GET /events/week. The date parameter anchors the week (any day
// within it); omitted means the current week. Events carry a civil projection
// of their bounds in the display timezone alongside the UTC instants.
func (h *EventHandler) Week(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	tz := strings.TrimSpace(query.Get("timezone"))
	if tz == "" {
		tz = h.defaultTimezone
	}

	view, err := h.service.WeekView(ctx, query.Get("date"), tz)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	events := make([]eventDTO, 0, len(view.Events))
	for _, event := range view.Events {
		dto := toEventDTO(event)
		if local, err := h.normalizer.ToCivil(event.StartUTC, view.Timezone); err == nil {
			dto.StartLocal = formatCivil(local)
		}
		if local, err := h.normalizer.ToCivil(event.EndUTC, view.Timezone); err == nil {
			dto.EndLocal = formatCivil(local)
		}
		events = append(events, dto)
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, weekViewResponse{
		StartOfWeek: formatInstant(view.StartUTC),
		EndOfWeek:   formatInstant(view.EndUTC),
		Timezone:    view.Timezone,
		Events:      events,
	})
}

func (h *EventHandler) decodeEventRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (application.EventInput, bool) {
	var req eventRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return application.EventInput{}, false
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = h.defaultTimezone
	}

	return application.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Timezone:    tz,
	}, true
}

func fieldForQueryError(err error, field string) string {
	if errors.Is(err, timezone.ErrInvalidTimezone) {
		return "timezone"
	}
	return field
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		StartUTC:    formatInstant(event.StartUTC),
		EndUTC:      formatInstant(event.EndUTC),
		Timezone:    event.Timezone,
		CreatedAt:   formatInstant(event.CreatedAt),
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	dtos := make([]eventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, toEventDTO(event))
	}
	return dtos
}

func formatInstant(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}

func formatCivil(ts time.Time) string {
	return ts.Format("2006-01-02T15:04:05")
}
