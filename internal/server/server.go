// Package server exposes the planner over a small JSON HTTP API together with
// the health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/UnknownOlympus/isomap/internal/render"
	"github.com/UnknownOlympus/isomap/internal/service"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 3 * time.Second
)

// PlanBuilder builds a plan from user input.
type PlanBuilder interface {
	Build(ctx context.Context, req service.PlanRequest) (*service.Plan, error)
}

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes the HTTP API.
type Server struct {
	log     *slog.Logger
	planner PlanBuilder
	cache   Pinger // nil when no cache is configured
	reg     *prometheus.Registry
}

// New creates a Server. cache may be nil.
func New(log *slog.Logger, planner PlanBuilder, cache Pinger, reg *prometheus.Registry) *Server {
	return &Server{log: log, planner: planner, cache: cache, reg: reg}
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/profiles", s.handleProfiles)
	mux.HandleFunc("POST /api/v1/plan", s.handlePlan)
	mux.HandleFunc("POST /api/v1/plan/geojson", s.handlePlanGeoJSON)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	return s.withRequestLog(mux)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(r.Context(), w, http.StatusOK, models.ProfileOptions())
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.buildPlan(w, r)
	if !ok {
		return
	}

	s.writeJSON(r.Context(), w, http.StatusOK, plan)
}

func (s *Server) handlePlanGeoJSON(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.buildPlan(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	s.writeJSON(r.Context(), w, http.StatusOK, render.FeatureCollection(plan))
}

func (s *Server) buildPlan(w http.ResponseWriter, r *http.Request) (*service.Plan, bool) {
	var req service.PlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}

	plan, err := s.planner.Build(r.Context(), req)
	if err != nil {
		s.writeError(r.Context(), w, statusFor(err), err.Error())
		return nil, false
	}

	return plan, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.log.DebugContext(ctx, "Performing health checks...")

	if s.cache != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		if err := s.cache.Ping(pingCtx); err != nil {
			s.log.WarnContext(ctx, "Cache ping failed", "error", err)
			s.writeJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"status": "cache ping failed"})
			return
		}
	}

	s.writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "OK"})
}

// statusFor maps planner errors to HTTP statuses.
func statusFor(err error) int {
	var perr *models.ProviderError
	switch {
	case service.IsInputError(err):
		return http.StatusBadRequest
	case errors.As(err, &perr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(ctx, "Request failed", "status", status, "error", msg)
	}
	s.writeJSON(ctx, w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.ErrorContext(ctx, "failed to write reply", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog tags every request with an X-Request-ID and logs its outcome.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.log.InfoContext(r.Context(), "Request served",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
