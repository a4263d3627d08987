package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nar43/eventtracking/internal/calendar"
	"github.com/nar43/eventtracking/internal/db"
	"github.com/nar43/eventtracking/internal/models"
	"github.com/nar43/eventtracking/internal/notify"
)

// EventRequest is the body for creating or queueing an event
type EventRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// ListEvents handles GET /v1/events
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter := models.EventFilter{
		Name: r.URL.Query().Get("name"),
		Date: r.URL.Query().Get("date"),
	}

	events, err := s.db.ListEvents(r.Context(), username, filter)
	if err != nil {
		s.respondInternal(w, r, "failed to list events", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

// CreateEvent handles POST /v1/events
func (s *Server) CreateEvent(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event := &models.Event{Owner: username, Name: req.Name, Date: req.Date}
	err := s.db.CreateEvent(r.Context(), event)
	if respondValidation(w, err) {
		return
	}
	if err != nil {
		s.respondInternal(w, r, "failed to create event", err)
		return
	}

	s.hub.Notify(username, notify.TypeEventCreated, event)
	respondJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /v1/events/{id}
func (s *Server) GetEvent(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	event, err := s.db.GetEvent(r.Context(), username, id)
	if errors.Is(err, db.ErrEventNotFound) {
		respondError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		s.respondInternal(w, r, "failed to get event", err)
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /v1/events/{id}
func (s *Server) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	err := s.db.DeleteEvent(r.Context(), username, id)
	if errors.Is(err, db.ErrEventNotFound) {
		respondError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		s.respondInternal(w, r, "failed to delete event", err)
		return
	}

	s.hub.Notify(username, notify.TypeEventDeleted, map[string]int64{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// ExportCalendar handles GET /v1/events/calendar.ics
func (s *Server) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}

	events, err := s.db.ListEvents(r.Context(), username, models.EventFilter{})
	if err != nil {
		s.respondInternal(w, r, "failed to list events", err)
		return
	}

	export := calendar.Build(username, events, time.Now().UTC())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.Header().Set("X-Skipped-Events", strconv.Itoa(export.Skipped))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.Body))
}
