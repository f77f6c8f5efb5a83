package jobs

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const jobColumns = "id, source_path, status, result, error_message, created_at, updated_at, finished_at, claimed_at, last_heartbeat, attempts"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		sourcePath   string
		statusStr    string
		result       sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
		finishedRaw  sql.NullString
		claimedRaw   sql.NullString
		heartbeatRaw sql.NullString
		attempts     int
	)
	if err := scanner.Scan(
		&id,
		&sourcePath,
		&statusStr,
		&result,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
		&claimedRaw,
		&heartbeatRaw,
		&attempts,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		SourcePath:   sourcePath,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
		Attempts:     attempts,
	}
	if result.Valid {
		job.Result = []byte(result.String)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	job.FinishedAt = parseNullableTime(finishedRaw)
	job.ClaimedAt = parseNullableTime(claimedRaw)
	job.LastHeartbeat = parseNullableTime(heartbeatRaw)
	return job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
