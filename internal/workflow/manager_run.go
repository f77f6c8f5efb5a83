package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vidtrack/internal/logging"
	"vidtrack/internal/services"
)

// Start launches the workers. It returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.runner == nil {
		m.mu.Unlock()
		return services.Wrap(services.ErrConfiguration, "workflow", "start", "analysis runner not configured", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	m.mu.Unlock()

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.Duration("poll_interval", m.pollInterval),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	for i := range m.workers {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop cancels the workers and waits for them to return. Jobs interrupted
// mid-run keep their lease and are picked up again after a restart.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

func (m *Manager) runWorker(ctx context.Context, worker int) {
	defer m.wg.Done()
	ctx = services.WithWorker(ctx, worker)
	logger := logging.WithContext(ctx, m.logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check job store access"),
			)
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForWorkOrShutdown(ctx)
			continue
		}

		m.processJob(ctx, job)
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_claim_failed"),
		logging.String(logging.FieldErrorHint, "check job store access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.retryInterval):
	}
}

func (m *Manager) waitForWorkOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-time.After(m.pollInterval):
	}
}
