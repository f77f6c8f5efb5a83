package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"vidtrack/internal/config"
	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/metrics"
)

// JobStore is the subset of the job store the HTTP boundary uses.
type JobStore interface {
	CreateWithID(ctx context.Context, id, sourcePath string) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Lookup(ctx context.Context, id string) (jobs.Outcome, error)
	List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
	Ping(ctx context.Context) error
}

// Hooks connect the server to the rest of the daemon.
type Hooks struct {
	// OnSubmit runs after a job row is created, typically to wake a worker.
	OnSubmit func()
	// Status reports daemon state for /api/status.
	Status func(ctx context.Context) DaemonStatus
}

// Server routes HTTP requests to the job store.
type Server struct {
	store     JobStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	hooks     Hooks
	uploadDir string
	logPath   string
	maxUpload int64
	token     string
	limiter   *clientLimiter
	router    *mux.Router
}

// NewServer builds the router for cfg. A nil metrics value disables /metrics.
func NewServer(cfg *config.Config, store JobStore, logger *slog.Logger, m *metrics.Metrics, hooks Hooks) *Server {
	s := &Server{
		store:     store,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		metrics:   m,
		hooks:     hooks,
		uploadDir: cfg.Paths.UploadDir,
		logPath:   filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		maxUpload: cfg.MaxUploadBytes(),
		token:     strings.TrimSpace(cfg.API.Token),
		limiter:   newClientLimiter(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst),
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(s.requestMiddleware, s.authMiddleware)

	r.Handle("/upload", s.rateLimited(http.HandlerFunc(s.handleUpload))).Methods(http.MethodPost)
	r.HandleFunc("/result/{job_id}", s.handleResult).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs", s.handleJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{job_id}", s.handleJob).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/logs", s.handleLogs).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if m != nil && cfg.API.MetricsEnabled {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	// Results are stored compact; escaping would alter their bytes.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
