package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"vidtrack/internal/analysis"
	"vidtrack/internal/detection"
	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/media"
	"vidtrack/internal/metrics"
	"vidtrack/internal/services"
	"vidtrack/internal/stage"
	"vidtrack/internal/transcribe"
)

// Collaborators are the external capabilities a Pipeline drives.
type Collaborators struct {
	Preparer    media.Preparer
	Faces       detection.FaceDetector
	Objects     detection.ObjectDetector
	Transcriber transcribe.Transcriber
	Translator  analysis.Translator // nil disables translation
}

// Options tunes a Pipeline.
type Options struct {
	Detection          detection.DriverOptions
	TranscriptLanguage string
	TargetLanguage     string
	// StageOverrides maps stage names to log levels.
	StageOverrides map[string]string
}

// Pipeline runs the stage handlers for a job.
type Pipeline struct {
	stages  []stage.Handler
	logger  *slog.Logger
	metrics *metrics.Metrics
	opts    Options
}

// New assembles a pipeline from explicit collaborators.
func New(c Collaborators, opts Options, logger *slog.Logger, m *metrics.Metrics) (*Pipeline, error) {
	if c.Preparer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "media preparer is required", nil)
	}
	if c.Faces == nil || c.Objects == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "face and object detectors are required", nil)
	}
	if c.Transcriber == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "transcriber is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	faces := instrumentedFaces{inner: c.Faces, metrics: m}
	objects := instrumentedObjects{inner: c.Objects, metrics: m}
	aggregator := analysis.NewAggregator(c.Translator, opts.TargetLanguage, logger)
	aggregator.OnFallback(func(string, error) { m.TranslationFallback() })

	p := &Pipeline{
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		metrics: m,
		opts:    opts,
	}
	p.stages = []stage.Handler{
		&prepareStage{preparer: c.Preparer},
		&detectStage{
			driver:  detection.NewDriver(faces, objects, opts.Detection, logger),
			faces:   c.Faces,
			objects: c.Objects,
			metrics: m,
		},
		&transcribeStage{transcriber: c.Transcriber, language: opts.TranscriptLanguage, logger: logging.NewComponentLogger(logger, "transcribe")},
		&aggregateStage{aggregator: aggregator, translator: c.Translator},
	}
	return p, nil
}

// Stages returns the ordered stage names.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages))
	for _, h := range p.stages {
		names = append(names, h.Name())
	}
	return names
}

// Run analyzes job using workDir for intermediate files and returns the
// encoded Result.
func (p *Pipeline) Run(ctx context.Context, job *jobs.Job, workDir string) ([]byte, error) {
	if job == nil {
		return nil, errors.New("pipeline: job is nil")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "create work dir", workDir, err)
	}
	ctx = services.WithJobID(ctx, job.ID)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}

	run := &stage.Run{Job: job, WorkDir: workDir}
	started := time.Now()
	for _, handler := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.execute(ctx, handler, run); err != nil {
			return nil, err
		}
	}

	encoded, err := analysis.Encode(run.Result)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "aggregate", "encode result", "", err)
	}
	logging.WithContext(ctx, p.logger).Info("job analyzed",
		logging.Int("faces", len(run.Result.Faces)),
		logging.Int("objects", len(run.Result.Objects)),
		logging.Int("transcript_chars", len(run.Result.Transcript)),
		logging.Duration("job_duration", time.Since(started)),
		logging.String(logging.FieldEventType, "job_analyzed"),
	)
	return encoded, nil
}

func (p *Pipeline) execute(ctx context.Context, handler stage.Handler, run *stage.Run) error {
	name := handler.Name()
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, logging.ForStage(p.logger, name, p.opts.StageOverrides))

	start := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	err := handler.Execute(stageCtx, run)
	elapsed := time.Since(start)
	p.metrics.StageObserved(name, elapsed, err)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return err
		}
		details := services.Details(err)
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.String(logging.FieldErrorOperation, details.Operation),
			logging.String(logging.FieldErrorHint, details.Hint),
			logging.Duration("stage_duration", elapsed),
			logging.Error(err),
		)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	return nil
}

// Health reports readiness for every stage.
func (p *Pipeline) Health(ctx context.Context) map[string]stage.Health {
	health := make(map[string]stage.Health, len(p.stages))
	for _, h := range p.stages {
		health[h.Name()] = h.HealthCheck(ctx)
	}
	return health
}

// JobDir is the per-job working directory under root.
func JobDir(root, jobID string) string {
	return filepath.Join(root, jobID)
}

func wrapStage(stageName, op string, err error) error {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) || errors.Is(err, context.Canceled) {
		return err
	}
	marker := services.ErrExternalTool
	if errors.Is(err, context.DeadlineExceeded) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, stageName, op, fmt.Sprintf("%s failed", op), err)
}
