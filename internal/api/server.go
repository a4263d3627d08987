package api

import (
	"log/slog"
	"time"

	"github.com/nar43/eventtracking/internal/account"
	"github.com/nar43/eventtracking/internal/db"
	"github.com/nar43/eventtracking/internal/middleware"
	"github.com/nar43/eventtracking/internal/notify"
	"github.com/nar43/eventtracking/internal/scheduler"
)

// Options configures the API server
type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server represents the API server
type Server struct {
	db             *db.DB
	accounts       *account.Service
	scheduler      *scheduler.Scheduler
	hub            *notify.Hub
	jwtConfig      *middleware.JWTConfig
	allowedOrigins []string
	logger         *slog.Logger
}

// NewServer creates a new API server
func NewServer(database *db.DB, sched *scheduler.Scheduler, hub *notify.Hub, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		db:             database,
		accounts:       account.NewService(database),
		scheduler:      sched,
		hub:            hub,
		jwtConfig:      middleware.NewJWTConfig(opts.JWTSecret, opts.TokenTTL),
		allowedOrigins: opts.AllowedOrigins,
		logger:         logger,
	}
}
