package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"turntable/internal/session"
	"turntable/internal/staging"
	"turntable/internal/store"
)

func TestProcessCommandPublishesFramesAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	video := filepath.Join(env.baseDir, "Spin.MOV")
	if err := os.WriteFile(video, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	out, err := runCLI(t, env.configPath, "process", video, "--json")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var result session.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result %q: %v", out, err)
	}
	if !staging.ValidSessionID(result.SessionID) {
		t.Fatalf("invalid session id %q", result.SessionID)
	}
	if result.FrameCount != 10 || result.RequestedFrames != 10 || result.Shortfall != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	want := fmt.Sprintf("http://turntable.test/frames/%s/360_009.png", result.SessionID)
	if got := result.FrameURLs[9]; got != want {
		t.Fatalf("last frame URL = %s, want %s", got, want)
	}
	if _, err := os.Stat(filepath.Join(staging.OutputDir(env.cfg.Paths.StagingDir, result.SessionID), "360_000.png")); err != nil {
		t.Fatalf("exported frame missing: %v", err)
	}

	out, err = runCLI(t, env.configPath, "sessions", "list", "--json")
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	var listed []store.Session
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one session, got %d", len(listed))
	}
	got := listed[0]
	if got.ID != result.SessionID || got.Status != store.StatusCompleted || got.VideoName != "Spin.MOV" {
		t.Fatalf("unexpected history row %+v", got)
	}
	if diff := cmp.Diff(result.FrameURLs, got.URLs); diff != "" {
		t.Fatalf("stored URLs mismatch (-want +got):\n%s", diff)
	}

	out, err = runCLI(t, env.configPath, "sessions", "show", result.SessionID)
	if err != nil {
		t.Fatalf("sessions show: %v", err)
	}
	requireContains(t, out, result.SessionID)
	requireContains(t, out, "Completed")
	requireContains(t, out, "10 of 10")

	out, err = runCLI(t, env.configPath, "sessions", "list")
	if err != nil {
		t.Fatalf("sessions list table: %v", err)
	}
	requireContains(t, out, "10/10")
	requireContains(t, out, "Spin.MOV")

	out, err = runCLI(t, env.configPath, "logs", result.SessionID, "--raw", "-n", "200")
	if err != nil {
		t.Fatalf("logs --raw: %v", err)
	}
	requireContains(t, out, `"msg":"session complete"`)
	requireContains(t, out, `"session_id":"`+result.SessionID+`"`)

	out, err = runCLI(t, env.configPath, "logs", result.SessionID, "-n", "200")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "INFO")
	requireContains(t, out, "session complete")
	if strings.Contains(out, `"msg"`) {
		t.Fatalf("formatted logs should not contain raw JSON:\n%s", out)
	}
}

func TestLogsCommandRejectsInvalidSession(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, env.configPath, "logs", "../../etc/passwd"); err == nil {
		t.Fatal("expected invalid session id error")
	}
}

func TestProcessCommandTable(t *testing.T) {
	env := setupCLITestEnv(t)
	video := filepath.Join(env.baseDir, "clip.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	out, err := runCLI(t, env.configPath, "process", video)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "Frames: 10 of 10")
	requireContains(t, out, "360_000.png")
	if strings.Contains(out, "Missing:") {
		t.Fatalf("unexpected shortfall line in %q", out)
	}
}

func TestProcessCommandRejectsMissingVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := runCLI(t, env.configPath, "process", filepath.Join(env.baseDir, "nope.mp4"))
	if err == nil || !strings.Contains(err.Error(), "nope.mp4") {
		t.Fatalf("expected missing video error, got %v", err)
	}
}

func TestProcessCommandRecordsFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	video := filepath.Join(env.baseDir, "empty.mp4")
	if err := os.WriteFile(video, nil, 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	_, err := runCLI(t, env.configPath, "process", video)
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Fatalf("expected session failure, got %v", err)
	}

	out, err := runCLI(t, env.configPath, "sessions", "list", "--status", "failed", "--json")
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	var listed []store.Session
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(listed) != 1 || listed[0].Error == "" {
		t.Fatalf("expected one failed session with a cause, got %+v", listed)
	}
}

func TestSessionsListEmptyAndBadStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env.configPath, "sessions", "list")
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	requireContains(t, out, "No sessions found")

	out, err = runCLI(t, env.configPath, "sessions", "list", "--json")
	if err != nil {
		t.Fatalf("sessions list --json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", out)
	}

	if _, err := runCLI(t, env.configPath, "sessions", "list", "--status", "archived"); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestSessionsShowNotFound(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := runCLI(t, env.configPath, "sessions", "show", staging.NewSessionID())
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Configuration")
	requireContains(t, out, "Sessions")
	requireContains(t, out, env.configPath)
	requireContains(t, out, "ffmpeg version stub")
	requireContains(t, out, "Staging directory")
	requireContains(t, out, "0 sessions")
	if strings.Contains(out, "\x1b[") {
		t.Fatal("status output to a buffer should not be colorized")
	}
}

func TestCleanupCommandRemovesStaleSessions(t *testing.T) {
	env := setupCLITestEnv(t)
	old := staging.NewWorkspace(env.cfg.Paths.StagingDir, staging.NewSessionID(), ".mp4")
	fresh := staging.NewWorkspace(env.cfg.Paths.StagingDir, staging.NewSessionID(), ".mp4")
	for _, ws := range []staging.Workspace{old, fresh} {
		if err := ws.Create(); err != nil {
			t.Fatalf("create workspace: %v", err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	for _, dir := range []string{old.Extracted, old.Stabilized, old.Output} {
		if err := os.Chtimes(dir, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	out, err := runCLI(t, env.configPath, "cleanup", "--max-age", "24h")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	requireContains(t, out, "Removed 3 staging entries")
	if _, err := os.Stat(old.Output); !os.IsNotExist(err) {
		t.Fatalf("stale output should be removed, stat err=%v", err)
	}
	if _, err := os.Stat(fresh.Output); err != nil {
		t.Fatalf("fresh output should remain: %v", err)
	}

	out, err = runCLI(t, env.configPath, "cleanup", "--max-age", "24h", "--orphans")
	if err != nil {
		t.Fatalf("cleanup --orphans: %v", err)
	}
	requireContains(t, out, "Removed 2 staging entries")
	if _, err := os.Stat(fresh.Output); err != nil {
		t.Fatalf("orphan cleanup must keep output: %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "conf", "turntable.toml")
	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	env := setupCLITestEnv(t)
	out, err = runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
	if strings.Contains(out, "Warning:") {
		t.Fatalf("default config should not warn:\n%s", out)
	}

	env.cfg.Motion.Backend = "opencv"
	writeTestConfig(t, env.configPath, env.cfg)
	out, err = runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate with opencv: %v", err)
	}
	requireContains(t, out, "Warning: motion.block_size = 7 is ignored by the opencv backend")

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[pipeline]\ntarget_frames = 0\n"), 0o644); err != nil {
		t.Fatalf("write bad config: %v", err)
	}
	if _, err := runCLI(t, bad, "config", "validate"); err == nil || !strings.Contains(err.Error(), "target_frames") {
		t.Fatalf("expected target_frames validation error, got %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.API.Token = "super-secret-token"
	env.cfg.Hosting.CloudName = "demo"
	env.cfg.Hosting.APIKey = "key-123"
	env.cfg.Hosting.APISecret = "shh"
	writeTestConfig(t, env.configPath, env.cfg)

	out, err := runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, secret := range []string{"super-secret-token", "key-123", "shh"} {
		if strings.Contains(out, secret) {
			t.Fatalf("config show leaked %q:\n%s", secret, out)
		}
	}
	requireContains(t, out, redacted)
	requireContains(t, out, "demo")
}

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are disabled")
}

func TestServerLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := acquireServerLock(dir)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	defer first.Unlock()
	if _, err := acquireServerLock(dir); err == nil || !strings.Contains(err.Error(), "already") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestServeCommandAnswersHealthAndStops(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.API.Bind = freeAddr(t)
	writeTestConfig(t, env.configPath, env.cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := runCLIContext(ctx, env.configPath, "serve")
		done <- err
	}()

	healthURL := "http://" + env.cfg.API.Bind + "/health"
	waitFor(t, 5*time.Second, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}
