package jobs

import "errors"

var (
	// ErrNotFound is returned by transitions on an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyFinal is returned when a completed or failed job is finalized again.
	ErrAlreadyFinal = errors.New("job already final")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
