package media

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestProbeHelpers(t *testing.T) {
	probe := Probe{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "AUDIO"},
		},
		Format: Format{Duration: "123.45"},
	}
	if probe.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", probe.VideoStreamCount())
	}
	if probe.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", probe.AudioStreamCount())
	}
	if probe.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", probe.DurationSeconds())
	}
	if !math.IsNaN(Probe{Format: Format{Duration: "bad"}}.DurationSeconds()) {
		t.Fatal("expected NaN for malformed duration")
	}
}

func TestInspectDecodesOutput(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(`{"streams":[{"index":0,"codec_type":"video","width":640,"height":480}],"format":{"duration":"2.0"}}`), nil
	}
	probe, err := Inspect(context.Background(), run, "", "/tmp/in.mp4")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if gotArgs[0] != "ffprobe" || gotArgs[len(gotArgs)-1] != "/tmp/in.mp4" {
		t.Fatalf("unexpected invocation: %v", gotArgs)
	}
	if probe.Streams[0].Width != 640 || probe.DurationSeconds() != 2 {
		t.Fatalf("unexpected probe: %+v", probe)
	}
}

func TestInspectErrors(t *testing.T) {
	if _, err := Inspect(context.Background(), nil, "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
	failing := func(context.Context, string, ...string) ([]byte, error) { return nil, errors.New("boom") }
	if _, err := Inspect(context.Background(), failing, "ffprobe", "x"); err == nil {
		t.Fatal("expected runner error to propagate")
	}
	garbage := func(context.Context, string, ...string) ([]byte, error) { return []byte("nope"), nil }
	if _, err := Inspect(context.Background(), garbage, "ffprobe", "x"); err == nil {
		t.Fatal("expected parse error")
	}
}
