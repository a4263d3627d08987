package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/nar43/eventtracking/internal/account"
	"github.com/nar43/eventtracking/internal/db"
)

// CredentialsRequest is the body of register and login requests
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register handles POST /v1/auth/register
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.accounts.CreateAccount(r.Context(), req.Username, req.Password)
	if respondValidation(w, err) {
		return
	}
	if errors.Is(err, db.ErrUserExists) {
		respondError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		s.respondInternal(w, r, "failed to create user", err)
		return
	}

	s.logger.InfoContext(r.Context(), "account created", "username", user.Username)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"username":  user.Username,
		"createdAt": user.CreatedAt,
	})
}

// Login handles POST /v1/auth/login
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if respondValidation(w, err) {
		return
	}
	switch {
	case errors.Is(err, db.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user does not exist")
		return
	case errors.Is(err, account.ErrIncorrectPassword):
		respondError(w, http.StatusUnauthorized, "incorrect password")
		return
	case err != nil:
		s.respondInternal(w, r, "failed to log in", err)
		return
	}

	token, expiresAt, err := s.jwtConfig.IssueToken(user.Username)
	if err != nil {
		s.respondInternal(w, r, "failed to generate token", err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		Username:  user.Username,
		ExpiresAt: expiresAt.UTC(),
	})
}
