package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nar43/eventtracking/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes configured
func (s *Server) NewRouter() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Skipped-Events"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.Health)

	r.Route("/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.Register)
			r.Post("/login", s.Login)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.jwtConfig.AuthMiddleware)

			r.Get("/events", s.ListEvents)
			r.Post("/events", s.CreateEvent)
			r.Get("/events/calendar.ics", s.ExportCalendar)
			r.Get("/events/{id}", s.GetEvent)
			r.Delete("/events/{id}", s.DeleteEvent)

			r.Get("/pending", s.ListPending)
			r.Post("/pending", s.QueueEvent)

			r.Post("/sync", s.Sync)
			r.Get("/sync/status", s.SyncStatus)
			r.Put("/sync/status", s.SetSyncStatus)

			r.Get("/stream", s.Stream)
		})
	})

	return r
}

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "health check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
