package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flowcatalog/internal/config"
)

const userAgent = "flowcat/0.1.0"

// Event names a session milestone.
type Event string

const (
	EventSessionCreated   Event = "session_created"
	EventSessionCompleted Event = "session_completed"
	EventSessionCancelled Event = "session_cancelled"
	EventTest             Event = "test"
)

// Payload carries event fields. Unknown keys are ignored.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unsupported notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	tag := payload.text("tag")
	switch event {
	case EventSessionCreated:
		body := fmt.Sprintf("Queued %d workflow(s)", payload.count("total"))
		if skipped := payload.count("skipped"); skipped > 0 {
			body += fmt.Sprintf(", skipped %d already imported", skipped)
		}
		return message{
			title: "flowcat - Import Queued",
			body:  withTag(body, tag),
			tags:  []string{"flowcat", "import", "queued"},
		}, true
	case EventSessionCompleted:
		processed := payload.count("processed")
		failed := payload.count("failed")
		duration := payload.elapsed("duration").Round(time.Second)
		msg := message{
			title: "flowcat - Import Complete",
			body:  fmt.Sprintf("Imported %d workflow(s) in %s", processed-failed, duration),
			tags:  []string{"flowcat", "import", "completed"},
		}
		if failed > 0 {
			msg.title = "flowcat - Import Complete (with errors)"
			msg.body = fmt.Sprintf("Imported %d workflow(s), %d failed, in %s", processed-failed, failed, duration)
			msg.tags = append(msg.tags, "warning")
			msg.priority = "high"
		}
		msg.body = withTag(msg.body, tag)
		return msg, true
	case EventSessionCancelled:
		return message{
			title: "flowcat - Import Cancelled",
			body:  withTag(fmt.Sprintf("Cancelled after %d of %d workflow(s)", payload.count("processed"), payload.count("total")), tag),
			tags:  []string{"flowcat", "import", "cancelled"},
		}, true
	case EventTest:
		return message{
			title:    "flowcat - Test",
			body:     "Notification system test",
			tags:     []string{"flowcat", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func withTag(body, tag string) string {
	if tag == "" {
		return body
	}
	return body + " [" + tag + "]"
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", msg.title)
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
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

func (p Payload) text(key string) string {
	if v, ok := p[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (p Payload) count(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) elapsed(key string) time.Duration {
	if v, ok := p[key].(time.Duration); ok && v > 0 {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
