// Package server exposes the read API: the latest snapshot, per-app
// history, health, and a manual collection trigger.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pixhistorial/internal/config"
	"pixhistorial/internal/health"
	"pixhistorial/internal/quote"
	"pixhistorial/internal/scheduler"
	"pixhistorial/internal/store"
	"pixhistorial/internal/version"
)

// Server serves the HTTP read layer.
type Server struct {
	cfg     config.HTTPConfig
	gateway store.Gateway
	agg     *health.Aggregator
	sched   *scheduler.Scheduler
	logger  *slog.Logger

	http *http.Server
}

// New creates a Server.
func New(cfg config.HTTPConfig, gateway store.Gateway, agg *health.Aggregator, sched *scheduler.Scheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		gateway: gateway,
		agg:     agg,
		sched:   sched,
		logger:  logger,
	}

	limiter := newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := correlationMiddleware(logger, limiter.middleware(s.routes()))

	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /latest", s.handleLatest)
	mux.HandleFunc("GET /apps/{app}", s.handleAppHistory)
	mux.HandleFunc("POST /snapshot", s.handleTrigger)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start begins serving. It returns when the listener stops.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "pixhistorial",
		"status":  "running",
		"version": version.Version,
	})
}

type snapshotResponse struct {
	CapturedAt time.Time     `json:"captured_at"`
	Quotes     []quote.Quote `json:"quotes"`
	TotalApps  int           `json:"total_apps"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := s.gateway.ReadLatest(r.Context())
	if err != nil {
		s.logger.Error("read latest failed", "err", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshots found")
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		CapturedAt: snap.CapturedAt,
		Quotes:     snap.Quotes,
		TotalApps:  len(snap.Quotes),
	})
}

type historyResponse struct {
	AppName      string                `json:"app_name"`
	History      []quote.HistoryRecord `json:"history"`
	TotalRecords int                   `json:"total_records"`
}

func (s *Server) handleAppHistory(w http.ResponseWriter, r *http.Request) {
	appName := r.PathValue("app")

	hours := 24
	if h := r.URL.Query().Get("hours"); h != "" {
		parsed, err := strconv.Atoi(h)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = parsed
	}

	until := time.Now().UTC()
	since := until.Add(-time.Duration(hours) * time.Hour)

	records, err := s.gateway.RangeQuery(r.Context(), appName, since, until, store.Descending)
	if err != nil {
		s.logger.Error("range query failed", "app", appName, "err", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no history found for app %q", appName))
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		AppName:      appName,
		History:      records,
		TotalRecords: len(records),
	})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	err := s.sched.Trigger(r.Context())
	if errors.Is(err, scheduler.ErrCycleRunning) {
		writeError(w, http.StatusConflict, "collection cycle already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("collection failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "snapshot saved"})
}

type healthResponse struct {
	Status           string  `json:"status"`
	Database         string  `json:"database"`
	StorageLatencyMS int64   `json:"storage_latency_ms"`
	LastUpdate       *string `json:"last_update"`
	LastFailure      *string `json:"last_failure,omitempty"`
	LastFailureKind  string  `json:"last_failure_kind,omitempty"`
	CycleRunning     bool    `json:"cycle_running"`
	Uptime           string  `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.agg.Status(r.Context())

	resp := healthResponse{
		Status:           "healthy",
		Database:         "connected",
		StorageLatencyMS: st.StorageLatency.Milliseconds(),
		LastUpdate:       timePtr(st.LastSuccessfulCollection),
		LastFailure:      timePtr(st.LastFailure),
		LastFailureKind:  st.LastFailureKind,
		CycleRunning:     st.CycleRunning,
		Uptime:           st.Uptime.Truncate(time.Second).String(),
	}

	code := http.StatusOK
	if !st.Healthy() {
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}

func timePtr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
