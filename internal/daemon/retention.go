package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/workspace"
)

const retentionInterval = time.Hour

func (d *Daemon) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		d.prune(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) prune(ctx context.Context) {
	logging.PruneLogs(d.logger, logging.PruneOptions{
		Dir:    d.cfg.Paths.LogDir,
		MaxAge: d.cfg.LogRetention(),
		Active: []string{d.logPath},
	})
	if err := d.sweepWorkDirs(ctx, d.cfg.HeartbeatTimeout()); err != nil && ctx.Err() == nil {
		logging.WarnWithContext(d.logger, "work directory sweep failed", "workspace_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale frames and audio remain on disk"),
		)
	}
	if _, err := d.PurgeJobs(ctx, time.Now()); err != nil && ctx.Err() == nil {
		logging.WarnWithContext(d.logger, "job retention failed", "job_retention_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "finished jobs and their uploads remain on disk"),
			logging.String(logging.FieldErrorHint, "check job store access"),
		)
	}
}

// PurgeJobs deletes finished jobs older than workflow.job_retention_days as
// of now, together with their uploaded source files. Pending jobs are never
// touched. A retention of zero keeps everything.
func (d *Daemon) PurgeJobs(ctx context.Context, now time.Time) (int64, error) {
	retention := d.cfg.JobRetention()
	if retention <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-retention)

	finished, err := d.store.List(ctx, jobs.StatusCompleted, jobs.StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("list finished jobs: %w", err)
	}
	for _, job := range finished {
		if job.FinishedAt == nil || !job.FinishedAt.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(d.cfg.Paths.UploadDir, job.ID)); err != nil {
			logging.WarnWithContext(d.logger, "upload cleanup failed", "upload_cleanup_failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "uploaded video remains on disk"),
			)
		}
	}

	purged, err := d.store.PurgeFinished(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge finished jobs: %w", err)
	}
	if purged > 0 {
		d.logger.Info("finished jobs purged",
			logging.Int64("jobs", purged),
			logging.String("cutoff", cutoff.UTC().Format(time.RFC3339)),
			logging.String(logging.FieldEventType, "jobs_purged"),
		)
	}
	return purged, nil
}

// sweepWorkDirs removes work directories whose job is not currently leased.
// Directories younger than minAge survive so a job claimed between the listing
// and the sweep keeps its files.
func (d *Daemon) sweepWorkDirs(ctx context.Context, minAge time.Duration) error {
	if d.cfg.Workflow.KeepWorkDirs {
		return nil
	}
	pending, err := d.store.List(ctx, jobs.StatusPending)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	active := make(map[string]struct{}, len(pending))
	for _, job := range pending {
		if job.Claimed() {
			active[job.ID] = struct{}{}
		}
	}
	workspace.Sweep(ctx, d.cfg.Paths.WorkDir, workspace.SweepOptions{Active: active, MinAge: minAge}, d.logger)
	return nil
}
