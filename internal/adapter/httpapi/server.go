// Package httpapi exposes the engine's tables and operational endpoints
// over HTTP. Rendering is someone else's job: this surface serves JSON and
// CSV, nothing more.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquiferwatch/recharge-engine/internal/pipeline"
)

// TableEngine is the pipeline surface the API consumes.
type TableEngine interface {
	GroundTruth(ctx context.Context, opts pipeline.RunOptions) []pipeline.GroundTruthRow
	Research(ctx context.Context, opts pipeline.RunOptions) []pipeline.ResearchRow
	Refresh(ctx context.Context, opts pipeline.RunOptions)
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and table endpoints.
type Server struct {
	httpServer *http.Server
	engine     TableEngine
	windowDays int
	logger     *slog.Logger
}

// NewServer creates the API server. defaultWindowDays applies when a
// request omits the window query parameter.
func NewServer(addr string, engine TableEngine, defaultWindowDays int, logger *slog.Logger) *Server {
	r := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine:     engine,
		windowDays: defaultWindowDays,
		logger:     logger,
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/groundtruth", s.handleGroundTruth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/research", s.handleResearch).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/refresh", s.handleRefresh).Methods(http.MethodPost)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.engine.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleGroundTruth(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.runOptions(w, r)
	if !ok {
		return
	}
	rows := s.engine.GroundTruth(r.Context(), opts)
	if rows == nil {
		rows = []pipeline.GroundTruthRow{}
	}
	if r.URL.Query().Get("format") == "csv" {
		serveCSV(w, "groundtruth.csv", func(w http.ResponseWriter) error {
			return pipeline.WriteGroundTruthCSV(w, rows)
		}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.runOptions(w, r)
	if !ok {
		return
	}
	rows := s.engine.Research(r.Context(), opts)
	if rows == nil {
		rows = []pipeline.ResearchRow{}
	}
	if r.URL.Query().Get("format") == "csv" {
		serveCSV(w, "research.csv", func(w http.ResponseWriter) error {
			return pipeline.WriteResearchCSV(w, rows)
		}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.runOptions(w, r)
	if !ok {
		return
	}
	opts.ForceRefresh = true
	s.engine.Refresh(r.Context(), opts)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshed"})
}

// runOptions parses the window override. Reports false after writing a 400
// for an unparseable value.
func (s *Server) runOptions(w http.ResponseWriter, r *http.Request) (pipeline.RunOptions, bool) {
	opts := pipeline.RunOptions{WindowDays: s.windowDays}
	if raw := r.URL.Query().Get("window"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be a non-negative integer"})
			return pipeline.RunOptions{}, false
		}
		opts.WindowDays = days
	}
	return opts, true
}

func serveCSV(w http.ResponseWriter, filename string, write func(http.ResponseWriter) error, logger *slog.Logger) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := write(w); err != nil {
		logger.Warn("csv export failed", "file", filename, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
