package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"turntable/internal/config"
)

const (
	userAgent      = "turntable/0.1"
	defaultTimeout = 10 * time.Second
)

// Event names a notification type.
type Event string

const (
	EventSessionCompleted Event = "session_completed"
	EventSessionFailed    Event = "session_failed"
	EventServerStarted    Event = "server_started"
	EventTest             Event = "test"
)

// Notice carries the values an event message is built from. Fields that do
// not apply to an event are ignored.
type Notice struct {
	SessionID string
	Uploaded  int
	Requested int
	Error     string
	Address   string
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, notice Notice) error
}

// NewService posts to the configured ntfy topic URL, or discards events when
// no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Discard
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ntfy{topic: topic, client: &http.Client{Timeout: timeout}}
}

// Discard drops every event.
var Discard Service = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event, Notice) error { return nil }

// push is one ntfy message. Title, tags and priority travel as headers.
type push struct {
	title    string
	body     string
	tags     string
	priority string
}

func render(event Event, n Notice) (push, bool) {
	switch event {
	case EventSessionCompleted:
		if missing := n.Requested - n.Uploaded; n.Requested > 0 && missing > 0 {
			return push{
				title:    "Turntable - Partial Upload",
				body:     fmt.Sprintf("Session %s finished with %d/%d frames (%d missing)", n.SessionID, n.Uploaded, n.Requested, missing),
				tags:     "turntable,session,warning",
				priority: "high",
			}, true
		}
		return push{
			title: "Turntable - Complete",
			body:  fmt.Sprintf("Session %s published %d frames", n.SessionID, n.Uploaded),
			tags:  "turntable,session,completed",
		}, true
	case EventSessionFailed:
		cause := strings.TrimSpace(n.Error)
		if cause == "" {
			cause = "unknown"
		}
		return push{
			title:    "Turntable - Error",
			body:     fmt.Sprintf("Session %s failed: %s", n.SessionID, cause),
			tags:     "turntable,error,alert",
			priority: "high",
		}, true
	case EventServerStarted:
		return push{
			title:    "Turntable - Online",
			body:     "Listening on " + n.Address,
			tags:     "turntable,server",
			priority: "low",
		}, true
	case EventTest:
		return push{
			title:    "Turntable - Test",
			body:     "Notification system test",
			tags:     "turntable,test",
			priority: "low",
		}, true
	}
	return push{}, false
}

type ntfy struct {
	topic  string
	client *http.Client
}

func (s *ntfy) Publish(ctx context.Context, event Event, n Notice) error {
	msg, ok := render(event, n)
	if !ok {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topic, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", msg.title)
	req.Header.Set("Tags", msg.tags)
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
