package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/nar43/eventtracking/internal/models"
	"github.com/nar43/eventtracking/internal/notify"
	"github.com/nar43/eventtracking/internal/scheduler"
)

// SyncResponse reports a migration run to the caller
type SyncResponse struct {
	RunID      string    `json:"runId"`
	Migrated   int       `json:"migrated"`
	Yours      int       `json:"yours"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// SyncStatusResponse represents the sync state
type SyncStatusResponse struct {
	scheduler.Status
	Pending int `json:"pending"`
}

// SetSyncStatusRequest toggles the online flag
type SetSyncStatusRequest struct {
	Online *bool `json:"online"`
}

// ListPending handles GET /v1/pending
func (s *Server) ListPending(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}

	pending, err := s.db.ListPendingEvents(r.Context(), username)
	if err != nil {
		s.respondInternal(w, r, "failed to list pending events", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pending": pending,
	})
}

// QueueEvent handles POST /v1/pending
func (s *Server) QueueEvent(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pending := &models.PendingEvent{Owner: username, Name: req.Name, Date: req.Date}
	err := s.db.EnqueuePendingEvent(r.Context(), pending)
	if respondValidation(w, err) {
		return
	}
	if err != nil {
		s.respondInternal(w, r, "failed to queue event", err)
		return
	}

	s.hub.Notify(username, notify.TypePendingQueued, pending)
	respondJSON(w, http.StatusAccepted, pending)
}

// Sync handles POST /v1/sync
func (s *Server) Sync(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}

	report, err := s.scheduler.RunOnce(r.Context())
	if errors.Is(err, scheduler.ErrOffline) {
		respondError(w, http.StatusServiceUnavailable, "sync is offline")
		return
	}
	if err != nil {
		s.respondInternal(w, r, "failed to sync pending events", err)
		return
	}

	respondJSON(w, http.StatusOK, SyncResponse{
		RunID:      report.RunID,
		Migrated:   report.Migrated,
		Yours:      report.ByOwner[username],
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	})
}

// SyncStatus handles GET /v1/sync/status
func (s *Server) SyncStatus(w http.ResponseWriter, r *http.Request) {
	s.respondSyncStatus(w, r)
}

// SetSyncStatus handles PUT /v1/sync/status
func (s *Server) SetSyncStatus(w http.ResponseWriter, r *http.Request) {
	var req SetSyncStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Online == nil {
		respondError(w, http.StatusBadRequest, "online is required")
		return
	}

	s.scheduler.SetOnline(*req.Online)
	s.respondSyncStatus(w, r)
}

func (s *Server) respondSyncStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.db.CountPendingEvents(r.Context())
	if err != nil {
		s.respondInternal(w, r, "failed to count pending events", err)
		return
	}

	respondJSON(w, http.StatusOK, SyncStatusResponse{
		Status:  s.scheduler.Status(),
		Pending: pending,
	})
}

// Stream handles GET /v1/stream
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUser(w, r)
	if !ok {
		return
	}
	s.hub.ServeWS(w, r, username)
}
