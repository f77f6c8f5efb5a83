package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Create inserts a new pending job for the stored upload at sourcePath.
func (s *Store) Create(ctx context.Context, sourcePath string) (*Job, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return nil, errors.New("create job: source path required")
	}
	return s.CreateWithID(ctx, uuid.NewString(), sourcePath)
}

// CreateWithID inserts a pending job under a caller-chosen id. The API uses
// this so the upload can be stored under the job's directory before insert.
func (s *Store) CreateWithID(ctx context.Context, id, sourcePath string) (*Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("create job: id required")
	}
	timestamp := formatTime(s.now())
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, source_path, status, created_at, updated_at, attempts)
         VALUES (?, ?, ?, ?, ?, 0)`,
		id,
		sourcePath,
		string(StatusPending),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by id. Unknown ids return nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	job, err := scanJob(s.queryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Lookup returns the polling view of a job. Unknown ids and jobs that are
// still running both report pending.
func (s *Store) Lookup(ctx context.Context, id string) (Outcome, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if job == nil {
		return Outcome{Status: StatusPending}, nil
	}
	switch job.Status {
	case StatusCompleted:
		return Outcome{Status: StatusCompleted, Result: job.Result}, nil
	case StatusFailed:
		return Outcome{Status: StatusFailed, Error: job.ErrorMessage}, nil
	default:
		return Outcome{Status: StatusPending}, nil
	}
}

// List returns jobs filtered by status set (or all jobs when none is given), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), s.d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// ActiveCount returns how many pending jobs are currently claimed by a worker.
func (s *Store) ActiveCount(ctx context.Context) (int, error) {
	var count int
	if err := s.queryRow(ctx,
		`SELECT COUNT(1) FROM jobs WHERE status = ? AND claimed_at IS NOT NULL`,
		string(StatusPending),
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}
