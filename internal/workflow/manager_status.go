package workflow

import (
	"context"

	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Workers     int
	Busy        int
	LastError   string
	LastJob     *jobs.Job
	QueueStats  map[jobs.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running, Workers: m.workers, Busy: m.busy}
	lastErr := m.lastErr
	lastJob := m.lastJob
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	if m.runner != nil {
		summary.StageHealth = m.runner.Health(ctx)
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *jobs.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setBusy(delta int) {
	m.mu.Lock()
	m.busy += delta
	m.mu.Unlock()
	m.metrics.WorkerBusy(delta)
}
