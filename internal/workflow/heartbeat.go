package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
)

// HeartbeatMonitor refreshes job leases and reclaims abandoned ones.
type HeartbeatMonitor struct {
	store             *jobs.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *jobs.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStale releases leases whose heartbeat is older than the timeout so
// another worker can pick the job up.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context, logger *slog.Logger) error {
	if h.heartbeatTimeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale jobs",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldEventType, "jobs_reclaimed"),
		)
	}
	return nil
}

// StartLoop refreshes the lease for jobID until ctx is cancelled.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID string) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.logger, "workflow-heartbeat"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.Heartbeat(ctx, jobID); err != nil {
				switch {
				case errors.Is(err, context.Canceled):
					return
				case errors.Is(err, jobs.ErrNotFound):
					// Lease was reclaimed or the job finished elsewhere.
					logger.Warn("job lease lost",
						logging.String(logging.FieldEventType, "lease_lost"),
						logging.String(logging.FieldImpact, "another worker may run this job"),
					)
				default:
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
