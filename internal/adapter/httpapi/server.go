// Package httpapi exposes the service over HTTP: refresh and read
// endpoints for notices plus health, readiness, and metrics routes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
)

// NoticeService is the application surface the API serves.
type NoticeService interface {
	Refresh(ctx context.Context) (int, error)
	Latest(ctx context.Context) ([]domain.StoredNotice, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the notice API.
type Server struct {
	httpServer *http.Server
	service    NoticeService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the notice and operational
// routes. Write timeout is generous: a refresh scrapes, OCRs, and
// prompts a model before responding.
func NewServer(addr string, service NoticeService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("POST /api/notices", s.handleRefresh)
	mux.HandleFunc("GET /api/notices/latest", s.handleLatest)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.Refresh(r.Context())
	if err != nil {
		s.logger.Error("refresh failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrReferenceUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"count": count})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	notices, err := s.service.Latest(r.Context())
	if err != nil {
		s.logger.Error("latest query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notices": notices})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
