package api

import (
	"maps"
	"path/filepath"
	"slices"
	"time"

	"vidtrack/internal/jobs"
	"vidtrack/internal/stage"
	"vidtrack/internal/workflow"
)

// FromJob converts a job record to its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:            job.ID,
		SourceFile:    filepath.Base(job.SourcePath),
		Status:        string(job.Status),
		ErrorMessage:  job.ErrorMessage,
		Claimed:       job.Claimed(),
		Attempts:      job.Attempts,
		ResultBytes:   len(job.Result),
		CreatedAt:     formatTime(job.CreatedAt),
		UpdatedAt:     formatTime(job.UpdatedAt),
		FinishedAt:    formatTimePtr(job.FinishedAt),
		LastHeartbeat: formatTimePtr(job.LastHeartbeat),
	}
}

// FromJobs converts a slice of job records.
func FromJobs(list []*jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// FromOutcome converts the store's boundary view into the result payload.
func FromOutcome(outcome jobs.Outcome) ResultResponse {
	return ResultResponse{
		Status: string(outcome.Status),
		Result: outcome.Result,
		Error:  outcome.Error,
	}
}

// FromStatusSummary converts a workflow summary to its API representation.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:     summary.Running,
		Workers:     summary.Workers,
		Busy:        summary.Busy,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		LastError:   summary.LastError,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastJob != nil {
		job := FromJob(summary.LastJob)
		status.LastJob = &job
	}
	return status
}

// MergeQueueStats keys counts by status string and fills in every status so
// clients always see all three.
func MergeQueueStats(stats map[jobs.Status]int) map[string]int {
	out := map[string]int{
		string(jobs.StatusPending):   0,
		string(jobs.StatusCompleted): 0,
		string(jobs.StatusFailed):    0,
	}
	for status, count := range stats {
		out[string(status)] += count
	}
	return out
}

// StageHealthSlice orders stage health by stage name.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	out := make([]StageHealth, 0, len(health))
	for _, name := range slices.Sorted(maps.Keys(health)) {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
