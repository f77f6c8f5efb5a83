package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vidtrack/internal/api"
	"vidtrack/internal/config"
	"vidtrack/internal/deps"
	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/metrics"
	"vidtrack/internal/workflow"
)

// Daemon coordinates the background workers and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	workflow *workflow.Manager
	metrics  *metrics.Metrics
	logPath  string

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger, wf *workflow.Manager, m *metrics.Metrics) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		metrics:  m,
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	server := api.NewServer(cfg, store, logger, m, api.Hooks{
		OnSubmit: wf.Notify,
		Status:   d.Status,
	})
	d.api = newAPIServer(cfg.API.Bind, server.Handler(), logger)
	return d, nil
}

// Start acquires the daemon lock, releases stale leases, and launches the
// workers, the API listener, and the retention loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vidtrack daemon instance is already running")
	}

	released, err := d.store.ResetClaims(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset job leases: %w", err)
	}
	if released > 0 {
		d.logger.Info("released leases from previous run",
			logging.Int64("jobs", released),
			logging.String(logging.FieldEventType, "leases_released"),
		)
	}

	if err := d.sweepWorkDirs(ctx, 0); err != nil {
		logging.WarnWithContext(d.logger, "work directory sweep failed", "workspace_sweep_failed",
			logging.Error(err),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.retentionLoop(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("vidtrack daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.String("store", d.store.Backend()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop shuts down the API, waits for workers to return, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report another instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("vidtrack daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the API listener is bound to.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status in its API form.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	summary := d.workflow.Status(ctx)
	checks := deps.CheckBinaries(deps.ForConfig(d.cfg))
	dependencies := make([]api.DependencyStatus, 0, len(checks))
	for _, dep := range checks {
		dependencies = append(dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreBackend: d.store.Backend(),
		LockFilePath: d.lockPath,
		Workflow:     api.FromStatusSummary(summary),
		Dependencies: dependencies,
	}
}
