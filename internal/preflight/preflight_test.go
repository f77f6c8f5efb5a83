package preflight_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidtrack/internal/config"
	"vidtrack/internal/deps"
	"vidtrack/internal/preflight"
	"vidtrack/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckDirectoryAccess("test", dir); !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}

	if result := preflight.CheckDirectoryAccess("test", filepath.Join(dir, "nope")); result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail for missing dir, got %+v", result)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDirectoryAccess("test", file); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDetector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	if result := preflight.CheckDetector(context.Background(), "Face detector", srv.URL); !result.Passed {
		t.Fatalf("expected reachable detector to pass, got %s", result.Detail)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if result := preflight.CheckDetector(context.Background(), "Face detector", broken.URL); result.Passed {
		t.Fatal("expected 5xx detector to fail")
	}

	if result := preflight.CheckDetector(context.Background(), "Face detector", ""); result.Passed || result.Detail != "missing url" {
		t.Fatalf("unexpected result for missing url: %+v", result)
	}
}

func TestCheckOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/models") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	if result := preflight.CheckOpenAI(ctx, "Transcription API", "good", srv.URL+"/v1"); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := preflight.CheckOpenAI(ctx, "Transcription API", "bad", srv.URL+"/v1"); result.Passed || result.Detail != "auth failed (invalid api key)" {
		t.Fatalf("expected auth failure, got %+v", result)
	}
	if result := preflight.CheckOpenAI(ctx, "Transcription API", "", srv.URL); result.Passed || result.Detail != "API key missing" {
		t.Fatalf("expected missing key failure, got %+v", result)
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckStore(t *testing.T) {
	ctx := context.Background()
	if result := preflight.CheckStore(ctx, "sqlite", pinger{}); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := preflight.CheckStore(ctx, "postgres", pinger{err: errors.New("connection refused")}); result.Passed {
		t.Fatal("expected failure")
	}
	if result := preflight.CheckStore(ctx, "sqlite", nil); result.Passed {
		t.Fatal("expected failure for nil store")
	}
}

func TestFromDependency(t *testing.T) {
	if r := preflight.FromDependency(deps.Status{Name: "uvx", Optional: true, Detail: "binary \"uvx\" not found"}); !r.Passed {
		t.Fatal("optional dependency should not fail preflight")
	}
	if r := preflight.FromDependency(deps.Status{Name: "FFmpeg", Detail: "binary \"ffmpeg\" not found"}); r.Passed {
		t.Fatal("required dependency should fail preflight")
	}
}

func TestRunAll(t *testing.T) {
	if results := preflight.RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}

	detector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer detector.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	cfg.Detection.FaceURL = detector.URL
	cfg.Detection.ObjectURL = detector.URL
	cfg.Transcription.Provider = config.TranscriptionWhisperX
	cfg.Translation.Enabled = false

	results := preflight.RunAll(context.Background(), cfg)
	names := make(map[string]preflight.Result, len(results))
	for _, r := range results {
		names[r.Name] = r
	}
	for _, want := range []string{"Data directory", "Work directory", "Upload directory", "FFmpeg", "FFprobe", "Face detector", "Object detector"} {
		r, ok := names[want]
		if !ok {
			t.Fatalf("missing check %q in %+v", want, results)
		}
		if !r.Passed {
			t.Fatalf("check %q failed: %s", want, r.Detail)
		}
	}
	if _, ok := names["Transcription API"]; ok {
		t.Fatal("whisperx provider should not check the transcription API")
	}
	if _, ok := names["uvx"]; !ok {
		t.Fatal("expected uvx check for whisperx provider")
	}
}
