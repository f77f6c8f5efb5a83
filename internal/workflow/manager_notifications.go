package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/notifications"
)

type notification struct {
	event   notifications.Event
	payload notifications.Payload
}

func eventJobCompleted(job *jobs.Job, label string) notification {
	return notification{event: notifications.EventJobCompleted, payload: notifications.Payload{
		"jobID":  job.ID,
		"label":  label,
		"source": filepath.Base(job.SourcePath),
	}}
}

func eventJobFailed(job *jobs.Job, message string) notification {
	return notification{event: notifications.EventJobFailed, payload: notifications.Payload{
		"jobID": job.ID,
		"error": message,
	}}
}

func (m *Manager) publish(ctx context.Context, what string, n notification) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, n.event, n.payload); err != nil {
		logger := logging.WithContext(ctx, m.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send " + what + " notification")
		} else {
			logger.Debug(what+" notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) onJobStarted(ctx context.Context) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("queue stats unavailable for start notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check job store access"),
				logging.String(logging.FieldImpact, "start notification will not be sent"),
			)
		}
		return
	}
	m.recordQueue(stats)

	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.mu.Unlock()

	m.publish(ctx, "queue start", notification{
		event:   notifications.EventQueueStarted,
		payload: notifications.Payload{"count": stats[jobs.StatusPending]},
	})
}

func (m *Manager) checkQueueCompletion(ctx context.Context) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("queue stats unavailable for completion notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check job store access"),
				logging.String(logging.FieldImpact, "completion notification will not be sent"),
			)
		}
		return
	}
	m.recordQueue(stats)
	if stats[jobs.StatusPending] > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive || m.busy > 0 {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	m.logger.Info("queue drained",
		logging.Int("completed", stats[jobs.StatusCompleted]),
		logging.Int("failed", stats[jobs.StatusFailed]),
		logging.Duration("queue_duration", duration),
		logging.String(logging.FieldEventType, "queue_drained"),
	)
	m.publish(ctx, "queue completion", notification{
		event: notifications.EventQueueCompleted,
		payload: notifications.Payload{
			"completed": stats[jobs.StatusCompleted],
			"failed":    stats[jobs.StatusFailed],
			"duration":  duration,
		},
	})
}

func (m *Manager) recordQueue(stats map[jobs.Status]int) {
	if m.metrics == nil {
		return
	}
	snapshot := make(map[string]int, len(stats))
	for status, count := range stats {
		snapshot[string(status)] = count
	}
	m.metrics.QueueSnapshot(snapshot)
}
