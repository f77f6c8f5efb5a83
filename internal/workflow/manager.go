package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vidtrack/internal/config"
	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/metrics"
	"vidtrack/internal/notifications"
	"vidtrack/internal/stage"
)

// Runner analyzes a single job and returns its encoded result.
type Runner interface {
	Run(ctx context.Context, job *jobs.Job, workDir string) ([]byte, error)
	Health(ctx context.Context) map[string]stage.Health
}

// Manager coordinates the worker pool.
type Manager struct {
	cfg           *config.Config
	store         *jobs.Store
	runner        Runner
	logger        *slog.Logger
	notifier      notifications.Service
	metrics       *metrics.Metrics
	heartbeat     *HeartbeatMonitor
	pollInterval  time.Duration
	retryInterval time.Duration
	workers       int
	wake          chan struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *jobs.Job
	busy    int

	queueActive bool
	queueStart  time.Time
}

// NewManager constructs a workflow manager. A nil notifier disables
// notifications and a nil metrics value disables instrumentation.
func NewManager(cfg *config.Config, store *jobs.Store, runner Runner, logger *slog.Logger, notifier notifications.Service, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	workers := max(cfg.Workflow.Workers, 1)
	return &Manager{
		cfg:           cfg,
		store:         store,
		runner:        runner,
		logger:        logger,
		notifier:      notifier,
		metrics:       m,
		heartbeat:     NewHeartbeatMonitor(store, logger, cfg.HeartbeatInterval(), cfg.HeartbeatTimeout()),
		pollInterval:  cfg.QueuePollInterval(),
		retryInterval: cfg.ErrorRetryInterval(),
		workers:       workers,
		wake:          make(chan struct{}, workers),
	}
}

// Notify wakes an idle worker so a newly submitted job starts without
// waiting for the next poll. It never blocks.
func (m *Manager) Notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
