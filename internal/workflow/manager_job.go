package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidtrack/internal/analysis"
	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/services"
)

// finalizeTimeout bounds the store write that records a job outcome. It runs
// on a context detached from shutdown so a finished analysis is not lost.
const finalizeTimeout = 30 * time.Second

func (m *Manager) processJob(ctx context.Context, job *jobs.Job) {
	m.setBusy(1)
	finished := m.runJob(ctx, job)
	m.setBusy(-1)
	if !finished {
		return
	}
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	m.checkQueueCompletion(checkCtx)
}

// runJob analyzes job and records its outcome. It returns false when the run
// was interrupted by shutdown and the job was left pending.
func (m *Manager) runJob(ctx context.Context, job *jobs.Job) bool {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, m.logger)

	m.setLastJob(job)
	m.onJobStarted(jobCtx)

	logger.Info("job claimed",
		logging.String("source_file", filepath.Base(job.SourcePath)),
		logging.Int("attempt", job.Attempts),
		logging.String(logging.FieldEventType, "job_claimed"),
	)

	if limit := m.cfg.Workflow.MaxAttempts; limit > 0 && job.Attempts > limit {
		finCtx, cancel := context.WithTimeout(context.WithoutCancel(jobCtx), finalizeTimeout)
		defer cancel()
		err := services.Wrap(services.ErrValidation, "workflow", "claim job",
			fmt.Sprintf("abandoned after %d interrupted attempts", limit),
			fmt.Errorf("attempt %d exceeds workflow.max_attempts", job.Attempts))
		m.handleJobFailure(finCtx, job, services.WithHint(err, "resubmit the video or raise workflow.max_attempts"))
		return true
	}

	workDir := filepath.Join(m.cfg.Paths.WorkDir, job.ID)
	started := time.Now()
	result, runErr := m.executeWithHeartbeat(jobCtx, job, workDir)
	m.cleanupWorkDir(jobCtx, workDir)

	if runErr != nil && errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		logger.Info("job interrupted by shutdown; it will be retried after restart",
			logging.String(logging.FieldEventType, "job_interrupted"),
		)
		return false
	}

	finCtx, cancel := context.WithTimeout(context.WithoutCancel(jobCtx), finalizeTimeout)
	defer cancel()
	if runErr != nil {
		m.handleJobFailure(finCtx, job, runErr)
	} else {
		m.handleJobSuccess(finCtx, job, result, time.Since(started))
	}
	return true
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, job *jobs.Job, workDir string) (result []byte, err error) {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
		}
	}()

	return m.runner.Run(ctx, job, workDir)
}

func (m *Manager) handleJobSuccess(ctx context.Context, job *jobs.Job, result []byte, elapsed time.Duration) {
	logger := logging.WithContext(ctx, m.logger)
	if err := m.store.Complete(ctx, job.ID, result); err != nil {
		m.handleFinalizeError(ctx, job, jobs.StatusCompleted, err)
		return
	}
	m.metrics.JobFinished(string(jobs.StatusCompleted))

	label := ""
	if decoded, err := analysis.Decode(result); err == nil && decoded.LabelTranslated != nil {
		label = *decoded.LabelTranslated
	}
	logger.Info("job completed",
		logging.String("primary_label", label),
		logging.Int("result_bytes", len(result)),
		logging.Duration("job_duration", elapsed),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	m.publish(ctx, "job completion", eventJobCompleted(job, label))
}

func (m *Manager) handleFinalizeError(ctx context.Context, job *jobs.Job, target jobs.Status, err error) {
	logger := logging.WithContext(ctx, m.logger)
	if errors.Is(err, jobs.ErrAlreadyFinal) {
		logger.Warn("job already finalized; outcome discarded",
			logging.String("attempted_status", string(target)),
			logging.String(logging.FieldEventType, "job_already_final"),
			logging.String(logging.FieldImpact, "the first recorded outcome stands"),
		)
		return
	}
	m.setLastError(err)
	logger.Error("failed to persist job outcome",
		logging.String("attempted_status", string(target)),
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_persist_failed"),
		logging.String(logging.FieldErrorHint, "check job store access"),
	)
}

func (m *Manager) cleanupWorkDir(ctx context.Context, workDir string) {
	if m.cfg.Workflow.KeepWorkDirs {
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "work directory cleanup failed", "workdir_cleanup_failed",
			logging.String("work_dir", workDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "intermediate frames remain on disk"),
		)
	}
}
