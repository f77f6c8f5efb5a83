package translate_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"vidtrack/internal/translate"
)

func chatServer(t *testing.T, reply string, calls *atomic.Int32, prompts *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if prompts != nil && len(payload.Messages) > 1 {
			*prompts = append(*prompts, payload.Messages[1].Content)
		}
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": reply}}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
}

func TestTranslateUsesTargetLanguageAndCaches(t *testing.T) {
	var calls atomic.Int32
	var prompts []string
	srv := chatServer(t, " \"Auto\". \n", &calls, &prompts)
	defer srv.Close()

	client := translate.NewClient(translate.Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	for range 2 {
		got, err := client.Translate(context.Background(), "car", "de")
		if err != nil {
			t.Fatalf("Translate failed: %v", err)
		}
		if got != "Auto" {
			t.Fatalf("expected Auto, got %q", got)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", calls.Load())
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "German") || !strings.HasSuffix(prompts[0], "car") {
		t.Fatalf("unexpected prompt %v", prompts)
	}
}

func TestTranslateEmptyReply(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, "   ", &calls, nil)
	defer srv.Close()

	client := translate.NewClient(translate.Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	_, err := client.Translate(context.Background(), "dog", "de")
	var empty *translate.EmptyResponseError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyResponseError, got %v", err)
	}
}

func TestTranslateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"nope","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	client := translate.NewClient(translate.Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	if _, err := client.Translate(context.Background(), "dog", "de"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTranslateRejectsBadInput(t *testing.T) {
	client := translate.NewClient(translate.Config{APIKey: "k", BaseURL: "http://127.0.0.1:1/v1"})
	if _, err := client.Translate(context.Background(), "  ", "de"); err == nil {
		t.Fatal("expected error for empty text")
	}
	if _, err := client.Translate(context.Background(), "dog", "!!"); err == nil {
		t.Fatal("expected error for unknown target")
	}
}
