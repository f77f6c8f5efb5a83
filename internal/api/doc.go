// Package api is the HTTP boundary of the daemon and the wire-format types
// shared with the CLI.
//
// # Routes
//
//	POST /upload              multipart field "file"; 202 {"job_id": "..."}
//	GET  /result/{job_id}     pending, completed with result, or failed with error
//	GET  /api/jobs            job listing, filtered by ?status=
//	GET  /api/jobs/{job_id}   job detail
//	GET  /api/status          workflow summary, queue stats, stage health, dependencies
//	GET  /api/logs            daemon log lines, ?lines= ?offset= ?follow= ?job=
//	GET  /metrics             prometheus exposition
//	GET  /healthz             liveness
//
// Submission only stores the upload and creates a pending job; analysis runs
// on the workflow worker pool. The result route only reads the job store and
// embeds the persisted result bytes verbatim.
//
// # Key Types
//
// Job: transport representation of a job row without the result payload.
//
// WorkflowStatus / DaemonStatus: runtime summaries rendered by `vidtrack status`.
//
// Client: typed HTTP client used by the CLI.
//
// DTOs use camelCase JSON tags except the submission and result payloads,
// whose snake_case keys are part of the public upload contract. Timestamps use
// RFC3339 with milliseconds.
package api
