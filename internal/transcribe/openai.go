package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"vidtrack/internal/language"
)

// OpenAIConfig configures the hosted Whisper adapter.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI transcribes through the /audio/transcriptions endpoint.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI builds the adapter. An empty model selects whisper-1.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientConfig.BaseURL = base
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: cfg.Timeout,
	}
}

// Transcribe implements Transcriber.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath, lang string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", errors.New("openai transcribe: audio path required")
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Language: language.ToISO2(lang),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
