// Package server exposes a read-only HTTP status API over the running
// scheduler: process listings, utilization stats, and Prometheus
// metrics. It observes the registry and runtime; it never mutates them.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me/coresim/internal/sched"
)

// Server is the coresim status API.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	scheduler *sched.Scheduler
	startTime time.Time
}

// New creates a Server with all routes registered.
func New(s *sched.Scheduler, logger *slog.Logger) *Server {
	srv := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		scheduler: s,
		startTime: time.Now(),
	}
	srv.routes()
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/processes", s.handleListProcesses)
		r.Get("/processes/{name}", s.handleGetProcess)
		r.Get("/stats", s.handleStats)
	})

	r.Handle("/metrics", promhttp.Handler())
}
