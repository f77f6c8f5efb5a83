package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidtrack/internal/config"
)

const userAgent = "vidtrack/0.1"

// Event identifies a notification type.
type Event string

const (
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventTest           Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted:   cfg.Notifications.JobCompleted,
			EventJobFailed:      cfg.Notifications.JobFailed,
			EventQueueStarted:   cfg.Notifications.QueueEvents,
			EventQueueCompleted: cfg.Notifications.QueueEvents,
			EventTest:           true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventJobCompleted:
		message := fmt.Sprintf("✅ Analysis complete: %s", shortID(data.stringValue("jobID")))
		if label := data.stringValue("label"); label != "" {
			message += fmt.Sprintf("\nPrimary object: %s", label)
		}
		if source := data.stringValue("source"); source != "" {
			message += fmt.Sprintf("\nFile: %s", source)
		}
		return payload{
			title:   "vidtrack - Job Complete",
			message: message,
			tags:    []string{"vidtrack", "job", "completed"},
		}, true
	case EventJobFailed:
		reason := data.stringValue("error")
		if reason == "" {
			reason = "unknown"
		}
		return payload{
			title:    "vidtrack - Job Failed",
			message:  fmt.Sprintf("❌ Job %s failed: %s", shortID(data.stringValue("jobID")), reason),
			tags:     []string{"vidtrack", "job", "error"},
			priority: "high",
		}, true
	case EventQueueStarted:
		return payload{
			title:   "vidtrack - Queue Started",
			message: fmt.Sprintf("Started processing %d pending jobs", data.intValue("count")),
			tags:    []string{"vidtrack", "queue", "started"},
		}, true
	case EventQueueCompleted:
		duration := data.durationValue("duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		completed, failed := data.intValue("completed"), data.intValue("failed")
		title := "vidtrack - Queue Complete"
		message := fmt.Sprintf("Queue drained: %d jobs completed in %s", completed, duration)
		if failed > 0 {
			title = "vidtrack - Queue Complete (with errors)"
			message = fmt.Sprintf("Queue drained: %d completed, %d failed in %s", completed, failed, duration)
		}
		return payload{title: title, message: message, tags: []string{"vidtrack", "queue", "completed"}}, true
	case EventTest:
		return payload{
			title:    "vidtrack - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"vidtrack", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "(unknown)"
	}
	return id
}

func (p Payload) stringValue(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) intValue(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) durationValue(key string) time.Duration {
	if v, ok := p[key].(time.Duration); ok {
		return v
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
