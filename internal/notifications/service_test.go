package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"turntable/internal/config"
	"turntable/internal/notifications"
)

type captured struct {
	Title, Tags, Priority, Body string
}

// ntfyRecorder starts a fake ntfy topic and returns a service posting to it
// plus the requests it received.
func ntfyRecorder(t *testing.T, status int) (notifications.Service, *[]captured) {
	t.Helper()
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			Title:    r.Header.Get("Title"),
			Tags:     r.Header.Get("Tags"),
			Priority: r.Header.Get("Priority"),
			Body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	return notifications.NewService(&cfg), &got
}

func TestNewServiceDiscardsWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = "  "
	svc := notifications.NewService(&cfg)
	if svc != notifications.Discard {
		t.Fatalf("expected Discard, got %T", svc)
	}
	if err := svc.Publish(context.Background(), notifications.EventSessionFailed, notifications.Notice{SessionID: "x"}); err != nil {
		t.Fatalf("discard returned %v", err)
	}
}

func TestNtfyMessages(t *testing.T) {
	tests := []struct {
		name   string
		event  notifications.Event
		notice notifications.Notice
		want   captured
	}{
		{
			name:   "completed",
			event:  notifications.EventSessionCompleted,
			notice: notifications.Notice{SessionID: "abc", Uploaded: 90, Requested: 90},
			want:   captured{Title: "Turntable - Complete", Tags: "turntable,session,completed", Body: "Session abc published 90 frames"},
		},
		{
			name:   "shortfall",
			event:  notifications.EventSessionCompleted,
			notice: notifications.Notice{SessionID: "abc", Uploaded: 8, Requested: 10},
			want:   captured{Title: "Turntable - Partial Upload", Tags: "turntable,session,warning", Priority: "high", Body: "Session abc finished with 8/10 frames (2 missing)"},
		},
		{
			name:   "failed",
			event:  notifications.EventSessionFailed,
			notice: notifications.Notice{SessionID: "abc", Error: "extract: no frames extracted"},
			want:   captured{Title: "Turntable - Error", Tags: "turntable,error,alert", Priority: "high", Body: "Session abc failed: extract: no frames extracted"},
		},
		{
			name:   "failed without cause",
			event:  notifications.EventSessionFailed,
			notice: notifications.Notice{SessionID: "abc"},
			want:   captured{Title: "Turntable - Error", Tags: "turntable,error,alert", Priority: "high", Body: "Session abc failed: unknown"},
		},
		{
			name:   "server started",
			event:  notifications.EventServerStarted,
			notice: notifications.Notice{Address: "127.0.0.1:8000"},
			want:   captured{Title: "Turntable - Online", Tags: "turntable,server", Priority: "low", Body: "Listening on 127.0.0.1:8000"},
		},
		{
			name:  "test",
			event: notifications.EventTest,
			want:  captured{Title: "Turntable - Test", Tags: "turntable,test", Priority: "low", Body: "Notification system test"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, got := ntfyRecorder(t, http.StatusOK)
			if err := svc.Publish(context.Background(), tc.event, tc.notice); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if diff := cmp.Diff([]captured{tc.want}, *got); diff != "" {
				t.Fatalf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNtfyIgnoresUnknownEvents(t *testing.T) {
	svc, got := ntfyRecorder(t, http.StatusOK)
	if err := svc.Publish(context.Background(), "something_else", notifications.Notice{}); err != nil {
		t.Fatalf("unknown event returned %v", err)
	}
	if len(*got) != 0 {
		t.Fatalf("unknown event was sent: %+v", *got)
	}
}

func TestNtfySurfacesHTTPErrors(t *testing.T) {
	svc, _ := ntfyRecorder(t, http.StatusForbidden)
	if err := svc.Publish(context.Background(), notifications.EventTest, notifications.Notice{}); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
