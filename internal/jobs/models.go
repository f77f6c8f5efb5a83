package jobs

import (
	"encoding/json"
	"time"
)

// Status is the public lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus maps a user-supplied value onto a Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPending, StatusCompleted, StatusFailed:
		return Status(value), true
	}
	return "", false
}

// IsFinal reports whether the status can no longer change.
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is a persisted analysis request.
type Job struct {
	ID           string
	SourcePath   string
	Status       Status
	Result       []byte
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time

	// Lease bookkeeping. Set only while a worker holds the job.
	ClaimedAt     *time.Time
	LastHeartbeat *time.Time
	Attempts      int
}

// Claimed reports whether a worker currently holds the job.
func (j *Job) Claimed() bool {
	return j != nil && j.ClaimedAt != nil
}

// Outcome is the boundary view of a job returned to polling clients.
type Outcome struct {
	Status Status          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}
