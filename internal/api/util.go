package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nar43/eventtracking/internal/middleware"
	"github.com/nar43/eventtracking/internal/models"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// respondValidation writes 400 for validation errors and reports whether it did.
func respondValidation(w http.ResponseWriter, err error) bool {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Message)
		return true
	}
	return false
}

// respondInternal logs err and writes a generic 500.
func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.logger.ErrorContext(r.Context(), message, "error", err, "path", r.URL.Path)
	respondError(w, http.StatusInternalServerError, message)
}

// currentUser returns the authenticated username, writing 401 when missing.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, err := middleware.GetUsernameFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return username, true
}

func eventIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return 0, false
	}
	return id, true
}
