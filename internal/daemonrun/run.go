package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"vidtrack/internal/config"
	"vidtrack/internal/daemon"
	"vidtrack/internal/deps"
	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/metrics"
	"vidtrack/internal/notifications"
	"vidtrack/internal/pipeline"
	"vidtrack/internal/preflight"
	"vidtrack/internal/workflow"
)

// PIDFileName is written to the data directory while the daemon runs.
const PIDFileName = "vidtrackd.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// SkipPreflight suppresses the startup readiness probes.
	SkipPreflight bool
}

// Run starts the vidtrack daemon and blocks until ctx is canceled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if !opts.SkipPreflight {
		logPreflight(signalCtx, logger, cfg)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store",
			logging.Error(err),
			logging.String(logging.FieldEventType, "store_open_failed"),
			logging.String(logging.FieldErrorHint, "check store.backend and store.dsn"),
		)
		return err
	}

	m := metrics.New()
	runner, err := pipeline.FromConfig(cfg, logger, m)
	if err != nil {
		store.Close()
		return fmt.Errorf("build pipeline: %w", err)
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManager(cfg, store, runner, logger, notifier, m)

	d, err := daemon.New(cfg, store, logger, manager, m)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind and the data directory lock"),
			logging.String(logging.FieldImpact, "no jobs will be accepted or processed"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("vidtrack daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// ReadPID returns the pid recorded by a running daemon, or 0 when none is.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(filepath.Join(cfg.Paths.DataDir, PIDFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := deps.CheckBinaries(deps.ForConfig(cfg))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("store_backend", cfg.Store.Backend),
		logging.String("transcription_provider", cfg.Transcription.Provider),
		logging.Bool("transcription_key_present", strings.TrimSpace(cfg.Transcription.APIKey) != ""),
		logging.Bool("translation_enabled", cfg.Translation.Enabled),
		logging.Int("workers", cfg.Workflow.Workers),
	}
	for _, status := range statuses {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "jobs depending on this check will fail"),
			logging.String(logging.FieldErrorHint, "run vidtrack preflight for details"),
		)
	}
}
