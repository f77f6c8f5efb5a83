package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"vidtrack/internal/language"
)

// DefaultModel is used when the configuration leaves the model blank.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You translate short object labels produced by a computer vision model.
Reply with the translation only: no quotes, no punctuation, no explanation.
Use the singular form a native speaker would use as a caption.`

// Config captures the runtime settings for the translation client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements analysis.Translator.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration

	mu    sync.Mutex
	cache map[cacheKey]string
}

type cacheKey struct {
	target string
	text   string
}

// EmptyResponseError reports a completion that carried no usable text.
type EmptyResponseError struct {
	FinishReason string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("translate: empty content (finish_reason=%q)", e.FinishReason)
}

// NewClient constructs a translation client.
func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientConfig.BaseURL = base
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: cfg.Timeout,
		cache:   make(map[cacheKey]string),
	}
}

// Translate returns text rendered in targetLang.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("translate: text required")
	}
	target := language.ToISO2(targetLang)
	if target == "" {
		return "", fmt.Errorf("translate: unsupported target language %q", targetLang)
	}
	key := cacheKey{target: target, text: strings.ToLower(text)}
	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(text, target)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", &EmptyResponseError{}
	}
	translated := cleanReply(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", &EmptyResponseError{FinishReason: string(resp.Choices[0].FinishReason)}
	}

	c.mu.Lock()
	c.cache[key] = translated
	c.mu.Unlock()
	return translated, nil
}

func userPrompt(text, target string) string {
	return fmt.Sprintf("Translate this label into %s: %s", language.DisplayName(target), text)
}

func cleanReply(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimSpace(strings.Trim(content, "\"'`. "))
}
