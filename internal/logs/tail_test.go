package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"turntable/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	res, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, res.Lines); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if res.Offset != 6 {
		t.Fatalf("offset = %d, want 6", res.Offset)
	}

	res, err = logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, res.Lines); diff != "" {
		t.Fatalf("short file mismatch (-want +got):\n%s", diff)
	}
}

func TestTailFromOffsetLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthr")

	res, err := logs.Tail(path, logs.TailOptions{Offset: 4})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if diff := cmp.Diff([]string{"two"}, res.Lines); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if res.Offset != 8 {
		t.Fatalf("offset = %d, want 8", res.Offset)
	}

	res, err = logs.Tail(path, logs.TailOptions{Offset: 100})
	if err != nil {
		t.Fatalf("Tail past end: %v", err)
	}
	if len(res.Lines) != 2 {
		t.Fatalf("expected a reread after truncation, got %#v", res.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	res, err := logs.Tail(filepath.Join(t.TempDir(), "missing.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil || len(res.Lines) != 0 || res.Offset != 0 {
		t.Fatalf("expected empty result, got %+v, %v", res, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, 6, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Follow returned %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"later"}, got); diff != "" {
		t.Fatalf("followed lines mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatJSONEntry(t *testing.T) {
	line := `{"ts":"2026-01-02T03:04:05Z","level":"warn","msg":"skipping unreadable frame","component":"stabilizer","session_id":"abc","frame":"frame_0003.jpg","event_type":"frame_skipped"}`
	got := logs.Format(line)
	want := "2026-01-02T03:04:05Z WARN [stabilizer] skipping unreadable frame event_type=frame_skipped frame=frame_0003.jpg"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
	if plain := logs.Format("not json"); plain != "not json" {
		t.Fatalf("non-JSON line changed: %q", plain)
	}
	if strings.Contains(got, "abc") {
		t.Fatal("session_id should be dropped from formatted output")
	}
}
