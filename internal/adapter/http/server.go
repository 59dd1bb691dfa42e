package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/pipeline"
)

// SyncService is the part of the pipeline the HTTP API reads from and
// triggers.
type SyncService interface {
	sharedobs.ReadinessChecker
	Latest() (domain.SyncResult, bool)
	Status() pipeline.Status
	SyncOnce(ctx context.Context) (domain.SyncResult, error)
}

// Server exposes health, readiness, metrics and the records API.
type Server struct {
	httpServer *http.Server
	svc        SyncService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// the /api/v1 routes.
func NewServer(addr string, svc SyncService, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	r.Use(Recover(logger))
	r.Use(RequestID())
	r.Use(Logging(logger))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(svc))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/boilers/{id}/daily", s.handleDaily)
		r.Get("/boilers/{id}/hourly", s.handleHourly)
		r.Get("/issues", s.handleIssues)
		r.Get("/status", s.handleStatus)
		r.Post("/sync", s.handleSync)
	})

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

type errorBody struct {
	Error string `json:"error"`
}

// latest writes 503 and returns false when no sync has succeeded yet.
func (s *Server) latest(w http.ResponseWriter) (domain.SyncResult, bool) {
	res, ok := s.svc.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no successful sync yet"})
	}
	return res, ok
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}
	if res.Records.Snapshot == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: res.Records.SnapshotError})
		return
	}
	writeJSON(w, http.StatusOK, res.Records.Snapshot)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	b, ok := boilerParam(w, r)
	if !ok {
		return
	}
	res, ok := s.latest(w)
	if !ok {
		return
	}
	d, ok := res.Records.DailyFor(b)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no daily records for " + b.Name()})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleHourly returns the whole series, or one day with ?date=M/D/YYYY.
func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	b, ok := boilerParam(w, r)
	if !ok {
		return
	}
	res, ok := s.latest(w)
	if !ok {
		return
	}
	h, ok := res.Records.HourlyFor(b)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no hourly records for " + b.Name()})
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusOK, h)
		return
	}
	recs, ok := h.Records.ByDate[date]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no hourly records on " + date})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleIssues(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"issues": res.Records.Issues,
		"flags":  res.Records.Flags,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.SyncOnce(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case err != nil:
		s.logger.Error("manual sync failed", "rid", GetRequestID(r), "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, res.Summary())
	}
}

func boilerParam(w http.ResponseWriter, r *http.Request) (domain.BoilerID, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "id"))
	b := domain.BoilerID(n)
	if err != nil || !b.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "boiler id must be 1, 2 or 3"})
		return 0, false
	}
	return b, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
