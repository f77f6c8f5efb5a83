package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Complete finalizes a pending job with its result bytes. The write happens
// at most once: a second call returns ErrAlreadyFinal and leaves the stored
// outcome untouched.
func (s *Store) Complete(ctx context.Context, id string, result []byte) error {
	if result == nil {
		return errors.New("complete job: result required")
	}
	now := formatTime(s.now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, result = ?, finished_at = ?, updated_at = ?,
             claimed_at = NULL, last_heartbeat = NULL
         WHERE id = ? AND status = ?`,
		string(StatusCompleted),
		string(result),
		now,
		now,
		id,
		string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return s.checkFinalized(ctx, id, res)
}

// Fail finalizes a pending job with an error message, with the same
// write-once guarantee as Complete.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	if message == "" {
		message = "job failed"
	}
	now := formatTime(s.now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, finished_at = ?, updated_at = ?,
             claimed_at = NULL, last_heartbeat = NULL
         WHERE id = ? AND status = ?`,
		string(StatusFailed),
		message,
		now,
		now,
		id,
		string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return s.checkFinalized(ctx, id, res)
}

func (s *Store) checkFinalized(ctx context.Context, id string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s is %s", ErrAlreadyFinal, id, job.Status)
}

// ClaimNext leases the oldest unclaimed pending job. It returns nil, nil when
// nothing is waiting.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	now := formatTime(s.now())
	query := s.d.rebind(`UPDATE jobs
        SET claimed_at = ?, last_heartbeat = ?, updated_at = ?, attempts = attempts + 1
        WHERE id = (
            SELECT id FROM jobs
            WHERE status = ? AND claimed_at IS NULL
            ORDER BY created_at, id
            LIMIT 1` + s.d.claimLock + `
        ) AND claimed_at IS NULL
        RETURNING ` + jobColumns)

	var job *Job
	err := retryOnBusy(ctx, func() error {
		var scanErr error
		job, scanErr = scanJob(s.db.QueryRowContext(ctx, query, now, now, now, string(StatusPending)))
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Heartbeat refreshes the lease on a claimed pending job.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	now := formatTime(s.now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ? AND claimed_at IS NOT NULL`,
		now,
		now,
		id,
		string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("update heartbeat: %w: %s has no active lease", ErrNotFound, id)
	}
	return nil
}

// ReclaimStale releases leases whose heartbeat is older than cutoff so
// another worker can pick the job up again.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET claimed_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND claimed_at IS NOT NULL AND last_heartbeat < ?`,
		formatTime(s.now()),
		string(StatusPending),
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetClaims releases every lease. The daemon calls it at startup, when no
// worker can legitimately hold a job.
func (s *Store) ResetClaims(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET claimed_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND claimed_at IS NOT NULL`,
		formatTime(s.now()),
		string(StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("reset claims: %w", err)
	}
	return res.RowsAffected()
}

// PurgeFinished deletes final jobs that finished before cutoff.
func (s *Store) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE status IN (?, ?) AND finished_at < ?`,
		string(StatusCompleted),
		string(StatusFailed),
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("purge finished jobs: %w", err)
	}
	return res.RowsAffected()
}
