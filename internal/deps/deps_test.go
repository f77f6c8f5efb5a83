package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"vidtrack/internal/config"
	"vidtrack/internal/deps"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []deps.Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := deps.CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected present binary to resolve, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := deps.Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestForConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Media.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	cfg.Media.FFprobeBinary = ""

	reqs := deps.ForConfig(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe only, got %#v", reqs)
	}
	if reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" || reqs[1].Command != "ffprobe" {
		t.Fatalf("unexpected commands: %q %q", reqs[0].Command, reqs[1].Command)
	}

	cfg.Transcription.Provider = config.TranscriptionWhisperX
	reqs = deps.ForConfig(&cfg)
	if len(reqs) != 3 || reqs[2].Command != "uvx" {
		t.Fatalf("expected uvx requirement for whisperx, got %#v", reqs)
	}
}
