package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidtrack/internal/analysis"
	"vidtrack/internal/detection"
	"vidtrack/internal/jobs"
	"vidtrack/internal/pipeline"
	"vidtrack/internal/services"
	"vidtrack/internal/testsupport"
	"vidtrack/internal/tracking"
)

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func det(label string, x float64) tracking.Detection {
	return tracking.Detection{Box: tracking.Box{X1: x, Y1: 0, X2: x + 10, Y2: 10}, Label: label, Confidence: 0.9}
}

func collaborators() (pipeline.Collaborators, *testsupport.FakeObjectDetector) {
	objects := &testsupport.FakeObjectDetector{ByFrame: map[int][]tracking.Detection{
		0: {det("car", 0), det("person", 100)},
		1: {det("car", 1), det("person", 101), {Box: tracking.Box{X1: 300, Y1: 0, X2: 310, Y2: 10}, Label: "bird", Confidence: 0.1}},
		2: {det("person", 102), det("dog", 200)},
	}}
	return pipeline.Collaborators{
		Preparer: &testsupport.FakePreparer{Frames: 3},
		Faces: &testsupport.FakeFaceDetector{ByFrame: map[int][]tracking.Box{
			1: {{X1: 1, Y1: 2, X2: 3, Y2: 4}},
		}},
		Objects:     objects,
		Transcriber: &testsupport.FakeTranscriber{Text: "Guten Tag"},
		Translator:  &testsupport.FakeTranslator{Dictionary: map[string]string{"car": "Auto"}},
	}, objects
}

func options() pipeline.Options {
	return pipeline.Options{
		Detection:          detection.DriverOptions{MinConfidence: 0.25},
		TranscriptLanguage: "de",
		TargetLanguage:     "de",
	}
}

func TestRunProducesAggregatedResult(t *testing.T) {
	c, objects := collaborators()
	p, err := pipeline.New(c, options(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	job := &jobs.Job{ID: "job-1", SourcePath: writeSource(t)}

	encoded, err := p.Run(context.Background(), job, filepath.Join(t.TempDir(), job.ID))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result, err := analysis.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(result.Faces) != 1 || result.Faces[0].Frame != 1 || result.Faces[0].FrameName != "frame_0002.jpg" {
		t.Fatalf("unexpected faces: %#v", result.Faces)
	}
	// 2 + 2 + 2 observations; the low-confidence bird is dropped.
	if len(result.Objects) != 6 {
		t.Fatalf("expected 6 object observations, got %d", len(result.Objects))
	}
	if result.Objects[0].ID != 0 || result.Objects[2].ID != 0 {
		t.Fatalf("car should keep track id 0 across frames: %#v", result.Objects)
	}
	if result.Transcript != "Guten Tag" {
		t.Fatalf("unexpected transcript %q", result.Transcript)
	}
	if result.LabelSource == nil || *result.LabelSource != "car" {
		t.Fatalf("expected car as source label, got %v", result.LabelSource)
	}
	if result.LabelTranslated == nil || *result.LabelTranslated != "Auto" {
		t.Fatalf("expected Auto as translated label, got %v", result.LabelTranslated)
	}
	if seen := objects.Seen(); len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Fatalf("detector should run once per frame in order, got %v", seen)
	}
}

func TestRunTranslationFailureStillCompletes(t *testing.T) {
	c, _ := collaborators()
	c.Translator = &testsupport.FakeTranslator{Err: errors.New("quota exceeded")}
	p, err := pipeline.New(c, options(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	encoded, err := p.Run(context.Background(), &jobs.Job{ID: "j", SourcePath: writeSource(t)}, t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(string(encoded), `"label_source":"car","label_translated":"car"`) {
		t.Fatalf("expected fallback to source label, got %s", encoded)
	}
}

func TestRunWithoutAudioLeavesTranscriptEmpty(t *testing.T) {
	c, _ := collaborators()
	c.Preparer = &testsupport.FakePreparer{Frames: 1, NoAudio: true}
	c.Transcriber = &testsupport.FakeTranscriber{Err: errors.New("must not be called")}
	p, err := pipeline.New(c, options(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	encoded, err := p.Run(context.Background(), &jobs.Job{ID: "j", SourcePath: writeSource(t)}, t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result, _ := analysis.Decode(encoded)
	if result.Transcript != "" {
		t.Fatalf("expected empty transcript, got %q", result.Transcript)
	}
}

func TestRunRequiredStageFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*pipeline.Collaborators)
		stage  string
		marker error
	}{
		{
			name:   "prepare",
			mutate: func(c *pipeline.Collaborators) { c.Preparer = &testsupport.FakePreparer{Err: errors.New("ffmpeg exited 1")} },
			stage:  "prepare",
			marker: services.ErrExternalTool,
		},
		{
			name: "detect",
			mutate: func(c *pipeline.Collaborators) {
				c.Objects = &testsupport.FakeObjectDetector{FailAt: 1, Err: errors.New("connection refused")}
			},
			stage:  "detect",
			marker: services.ErrExternalTool,
		},
		{
			name:   "transcribe",
			mutate: func(c *pipeline.Collaborators) { c.Transcriber = &testsupport.FakeTranscriber{Err: context.DeadlineExceeded} },
			stage:  "transcribe",
			marker: services.ErrTimeout,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := collaborators()
			tc.mutate(&c)
			p, err := pipeline.New(c, options(), nil, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			encoded, err := p.Run(context.Background(), &jobs.Job{ID: "j", SourcePath: writeSource(t)}, t.TempDir())
			if err == nil {
				t.Fatalf("expected failure, got result %s", encoded)
			}
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v marker, got %v", tc.marker, err)
			}
			if details := services.Details(err); details.Stage != tc.stage {
				t.Fatalf("expected stage %q, got %q (%v)", tc.stage, details.Stage, err)
			}
		})
	}
}

func TestRunRejectsMissingSource(t *testing.T) {
	c, _ := collaborators()
	p, _ := pipeline.New(c, options(), nil, nil)
	_, err := p.Run(context.Background(), &jobs.Job{ID: "j", SourcePath: filepath.Join(t.TempDir(), "gone.mp4")}, t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	c, _ := collaborators()
	p, _ := pipeline.New(c, options(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, &jobs.Job{ID: "j", SourcePath: writeSource(t)}, t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := pipeline.New(pipeline.Collaborators{}, options(), nil, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHealthAndStageOrder(t *testing.T) {
	c, _ := collaborators()
	c.Translator = nil
	p, _ := pipeline.New(c, options(), nil, nil)
	names := strings.Join(p.Stages(), ",")
	if names != "prepare,detect,transcribe,aggregate" {
		t.Fatalf("unexpected stage order %s", names)
	}
	health := p.Health(context.Background())
	for _, name := range p.Stages() {
		if !health[name].Ready {
			t.Fatalf("stage %s not ready: %#v", name, health[name])
		}
	}
	if health["aggregate"].Detail != "translation disabled" {
		t.Fatalf("expected translation disabled detail, got %#v", health["aggregate"])
	}
}
