package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vidtrack/internal/media"
	"vidtrack/internal/tracking"
)

// FakePreparer writes placeholder frame files and reports them as prepared.
type FakePreparer struct {
	Frames   int
	NoAudio  bool
	Err      error
	mu       sync.Mutex
	calls    int
	lastSeen string
}

// Prepare implements media.Preparer.
func (p *FakePreparer) Prepare(ctx context.Context, videoPath, outDir string) (media.Prepared, error) {
	p.mu.Lock()
	p.calls++
	p.lastSeen = videoPath
	p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return media.Prepared{}, err
	}
	if p.Err != nil {
		return media.Prepared{}, p.Err
	}
	if _, err := os.Stat(videoPath); err != nil {
		return media.Prepared{}, fmt.Errorf("fake prepare: %w", err)
	}
	frameDir := filepath.Join(outDir, "frames")
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return media.Prepared{}, err
	}
	prepared := media.Prepared{Duration: float64(p.Frames)}
	for i := range p.Frames {
		name := fmt.Sprintf("frame_%04d.jpg", i+1)
		path := filepath.Join(frameDir, name)
		if err := os.WriteFile(path, []byte{0xff, 0xd8}, 0o644); err != nil {
			return media.Prepared{}, err
		}
		prepared.Frames = append(prepared.Frames, media.Frame{Index: i, Path: path, Name: name})
	}
	if !p.NoAudio {
		prepared.AudioPath = filepath.Join(outDir, media.AudioFileName)
		if err := os.WriteFile(prepared.AudioPath, []byte("RIFF"), 0o644); err != nil {
			return media.Prepared{}, err
		}
	}
	return prepared, nil
}

// Calls returns how many times Prepare ran.
func (p *FakePreparer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// FakeFaceDetector returns scripted boxes per frame index.
type FakeFaceDetector struct {
	ByFrame map[int][]tracking.Box
	Err     error
}

// DetectFaces implements detection.FaceDetector.
func (d *FakeFaceDetector) DetectFaces(_ context.Context, frame media.Frame) ([]tracking.Box, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.ByFrame[frame.Index], nil
}

// FakeObjectDetector returns scripted detections per frame index.
type FakeObjectDetector struct {
	ByFrame map[int][]tracking.Detection
	// FailAt makes the detector fail on that frame index when Err is set.
	FailAt int
	Err    error
	mu     sync.Mutex
	seen   []int
}

// DetectObjects implements detection.ObjectDetector.
func (d *FakeObjectDetector) DetectObjects(_ context.Context, frame media.Frame) ([]tracking.Detection, error) {
	d.mu.Lock()
	d.seen = append(d.seen, frame.Index)
	d.mu.Unlock()
	if d.Err != nil && frame.Index == d.FailAt {
		return nil, d.Err
	}
	return d.ByFrame[frame.Index], nil
}

// Seen returns the frame indexes the detector was called with, in order.
func (d *FakeObjectDetector) Seen() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.seen...)
}

// FakeTranscriber returns a fixed transcript.
type FakeTranscriber struct {
	Text string
	Err  error
}

// Transcribe implements transcribe.Transcriber.
func (f *FakeTranscriber) Transcribe(_ context.Context, audioPath, _ string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	if audioPath == "" {
		return "", errors.New("fake transcribe: audio path required")
	}
	return f.Text, nil
}

// FakeTranslator maps lowercase labels through a dictionary.
type FakeTranslator struct {
	Dictionary map[string]string
	Err        error
}

// Translate implements analysis.Translator.
func (f *FakeTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.Dictionary[strings.ToLower(text)], nil
}
