package workflow

import (
	"context"
	"strings"

	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/services"
)

func (m *Manager) handleJobFailure(ctx context.Context, job *jobs.Job, jobErr error) {
	logger := logging.WithContext(ctx, m.logger)
	message := classifyJobFailure(jobErr)
	m.setLastError(jobErr)

	details := services.Details(jobErr)
	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.Alert("job_failure"),
		logging.String(logging.FieldStage, details.Stage),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorHint, details.Hint),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(jobErr))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "job_failed"))
	logger.Error("job failed", logging.Args(attrs...)...)

	if err := m.store.Fail(ctx, job.ID, message); err != nil {
		m.handleFinalizeError(ctx, job, jobs.StatusFailed, err)
		return
	}
	m.metrics.JobFinished(string(jobs.StatusFailed))
	m.publish(ctx, "job failure", eventJobFailed(job, message))
}

// classifyJobFailure renders the message stored on a failed job.
func classifyJobFailure(err error) string {
	if err == nil {
		return "analysis failed without error detail"
	}
	message := strings.TrimSpace(err.Error())
	if message != "" {
		return message
	}
	if stage := services.Details(err).Stage; stage != "" {
		return stage + " failed"
	}
	return "analysis failed"
}
