package transcribe_test

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"vidtrack/internal/transcribe"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF0000WAVE"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestOpenAITranscribe(t *testing.T) {
	var fields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Errorf("parse content type: %v", err)
			return
		}
		reader := multipart.NewReader(r.Body, params["boundary"])
		fields = map[string]string{}
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			if part.FileName() == "" {
				data, _ := io.ReadAll(part)
				fields[part.FormName()] = string(data)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  hallo welt  "}`)
	}))
	defer srv.Close()

	tr := transcribe.NewOpenAI(transcribe.OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	text, err := tr.Transcribe(context.Background(), writeAudio(t), "German")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hallo welt" {
		t.Fatalf("unexpected transcript %q", text)
	}
	if fields["model"] != "whisper-1" || fields["language"] != "de" {
		t.Fatalf("unexpected form fields: %v", fields)
	}
}

func TestOpenAITranscribeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	tr := transcribe.NewOpenAI(transcribe.OpenAIConfig{APIKey: "bad", BaseURL: srv.URL + "/v1"})
	if _, err := tr.Transcribe(context.Background(), writeAudio(t), "de"); err == nil {
		t.Fatal("expected error from 401 response")
	}
	if _, err := tr.Transcribe(context.Background(), "", "de"); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWhisperXTranscribe(t *testing.T) {
	audio := writeAudio(t)
	var gotArgs []string
	wx := transcribe.NewWhisperX(transcribe.WhisperXConfig{})
	wx.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotArgs = args
		outDir := args[slices.Index(args, "--output_dir")+1]
		payload := `{"segments":[{"text":" Guten Tag. "},{"text":""},{"text":"Wie geht's?"}]}`
		return os.WriteFile(filepath.Join(outDir, "audio.json"), []byte(payload), 0o644)
	})

	text, err := wx.Transcribe(context.Background(), audio, "deu")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "Guten Tag. Wie geht's?" {
		t.Fatalf("unexpected transcript %q", text)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"whisperx " + audio, "--model large-v3", "--language de", "--device cpu"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
}

func TestWhisperXMissingOutput(t *testing.T) {
	wx := transcribe.NewWhisperX(transcribe.WhisperXConfig{CUDAEnabled: true})
	wx.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	if _, err := wx.Transcribe(context.Background(), writeAudio(t), ""); err == nil {
		t.Fatal("expected error when whisperx wrote no output")
	}
}
