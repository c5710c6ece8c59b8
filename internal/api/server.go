// Package api is florescence's introspection HTTP server: health/status
// checks, a Prometheus /metrics endpoint, and read-only views of a Flower's
// current membership and recent trace spans. Grounded on the teacher's
// internal/api/server.go chi router shape (middleware stack, route
// grouping, JSON helper) — trimmed to the handful of routes a gossip daemon
// actually needs, since there is no inference API to mirror here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/byronwasti/florescence/internal/flower"
)

// Server is the florescence introspection HTTP server.
type Server[A comparable] struct {
	flower *flower.Flower[A]
}

// NewServer builds a Server that introspects f.
func NewServer[A comparable](f *flower.Flower[A]) *Server[A] {
	return &Server[A]{flower: f}
}

// Handler returns the chi router with every route mounted.
func (s *Server[A]) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/traces", s.handleTraces)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server[A]) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.flower.Query(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server[A]) handleTraces(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, s.flower.Tracer().Spans(limit))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
