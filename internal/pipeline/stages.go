package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"vidtrack/internal/analysis"
	"vidtrack/internal/detection"
	"vidtrack/internal/logging"
	"vidtrack/internal/media"
	"vidtrack/internal/metrics"
	"vidtrack/internal/stage"
	"vidtrack/internal/tracking"
	"vidtrack/internal/transcribe"
)

// Stage names, also used as log and metric labels.
const (
	StagePrepare    = "prepare"
	StageDetect     = "detect"
	StageTranscribe = "transcribe"
	StageAggregate  = "aggregate"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type prepareStage struct {
	preparer media.Preparer
}

func (s *prepareStage) Name() string { return StagePrepare }

func (s *prepareStage) Execute(ctx context.Context, run *stage.Run) error {
	if err := stage.RequireFile(StagePrepare, run.Job.SourcePath); err != nil {
		return err
	}
	prepared, err := s.preparer.Prepare(ctx, run.Job.SourcePath, filepath.Join(run.WorkDir, "media"))
	if err != nil {
		return wrapStage(StagePrepare, "prepare media", err)
	}
	run.Prepared = prepared
	return nil
}

func (s *prepareStage) HealthCheck(context.Context) stage.Health {
	if s.preparer == nil {
		return stage.Unhealthy(StagePrepare, "no media preparer configured")
	}
	return stage.Healthy(StagePrepare)
}

type detectStage struct {
	driver  *detection.Driver
	faces   detection.FaceDetector
	objects detection.ObjectDetector
	metrics *metrics.Metrics
}

func (s *detectStage) Name() string { return StageDetect }

func (s *detectStage) Execute(ctx context.Context, run *stage.Run) error {
	out, err := s.driver.Run(ctx, run.Prepared.Frames)
	if err != nil {
		return wrapStage(StageDetect, "run detectors", err)
	}
	s.metrics.TracksCreated(out.TracksCreated)
	run.Detections = out
	return nil
}

func (s *detectStage) HealthCheck(ctx context.Context) stage.Health {
	var problems []string
	for name, d := range map[string]any{"face": s.faces, "object": s.objects} {
		p, ok := d.(pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			problems = append(problems, fmt.Sprintf("%s detector: %v", name, err))
		}
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return stage.Unhealthy(StageDetect, strings.Join(problems, "; "))
	}
	return stage.Healthy(StageDetect)
}

type transcribeStage struct {
	transcriber transcribe.Transcriber
	language    string
	logger      *slog.Logger
}

func (s *transcribeStage) Name() string { return StageTranscribe }

func (s *transcribeStage) Execute(ctx context.Context, run *stage.Run) error {
	if run.Prepared.AudioPath == "" {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "input has no audio; transcript left empty",
			"transcription_skipped",
			logging.String(logging.FieldImpact, "result transcript is empty"),
			logging.String(logging.FieldErrorHint, "upload a video with an audio track to get a transcript"),
		)
		run.Transcript = ""
		return nil
	}
	text, err := s.transcriber.Transcribe(ctx, run.Prepared.AudioPath, s.language)
	if err != nil {
		return wrapStage(StageTranscribe, "transcribe audio", err)
	}
	run.Transcript = text
	return nil
}

func (s *transcribeStage) HealthCheck(context.Context) stage.Health {
	if s.transcriber == nil {
		return stage.Unhealthy(StageTranscribe, "no transcriber configured")
	}
	return stage.Healthy(StageTranscribe)
}

type aggregateStage struct {
	aggregator *analysis.Aggregator
	translator analysis.Translator
}

func (s *aggregateStage) Name() string { return StageAggregate }

func (s *aggregateStage) Execute(ctx context.Context, run *stage.Run) error {
	run.Result = s.aggregator.Aggregate(ctx, run.Detections.Faces, run.Detections.Objects, run.Transcript)
	return nil
}

func (s *aggregateStage) HealthCheck(context.Context) stage.Health {
	if s.translator == nil {
		return stage.Health{Name: StageAggregate, Ready: true, Detail: "translation disabled"}
	}
	return stage.Healthy(StageAggregate)
}

// instrumentedFaces and instrumentedObjects count detector calls.
type instrumentedFaces struct {
	inner   detection.FaceDetector
	metrics *metrics.Metrics
}

func (d instrumentedFaces) DetectFaces(ctx context.Context, frame media.Frame) ([]tracking.Box, error) {
	boxes, err := d.inner.DetectFaces(ctx, frame)
	d.metrics.DetectorCalled("face", err)
	return boxes, err
}

type instrumentedObjects struct {
	inner   detection.ObjectDetector
	metrics *metrics.Metrics
}

func (d instrumentedObjects) DetectObjects(ctx context.Context, frame media.Frame) ([]tracking.Detection, error) {
	dets, err := d.inner.DetectObjects(ctx, frame)
	d.metrics.DetectorCalled("object", err)
	return dets, err
}
