package stage

import (
	"context"

	"vidtrack/internal/analysis"
	"vidtrack/internal/detection"
	"vidtrack/internal/jobs"
	"vidtrack/internal/media"
)

// Handler describes the contract the pipeline needs from each stage.
type Handler interface {
	Name() string
	Execute(context.Context, *Run) error
	HealthCheck(context.Context) Health
}

// Run carries one job through the stages. Each stage reads what earlier
// stages produced and fills in its own part.
type Run struct {
	Job     *jobs.Job
	WorkDir string

	Prepared   media.Prepared
	Detections detection.Output
	Transcript string
	Result     analysis.Result
}
