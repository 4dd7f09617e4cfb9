package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"turntable/internal/config"
	"turntable/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv writes a config whose ffmpeg is a stub that copies a
// pre-rendered turntable clip into the extraction directory.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithTargetFrames(10))
	base := testsupport.BaseDir(cfg)
	cfg.FFmpeg.FrameExtension = "png"
	cfg.Logging.Level = "error"

	fixtures := filepath.Join(base, "fixtures")
	if err := os.MkdirAll(fixtures, 0o755); err != nil {
		t.Fatalf("mkdir fixtures: %v", err)
	}
	testsupport.WriteSequence(t, fixtures, testsupport.NewScene(96, 72, 30, 7), turningOffsets(14))

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	writeScript(t, ffmpeg, fmt.Sprintf(
		"[ \"$1\" = \"-version\" ] && { echo 'ffmpeg version stub'; exit 0; }\nfor last; do :; done\ncp %q/*.png \"${last%%/*}/\"\n",
		fixtures,
	))
	writeScript(t, filepath.Join(binDir, "ffprobe"),
		"[ \"$1\" = \"-version\" ] && { echo 'ffprobe version stub'; exit 0; }\n"+
			`echo '{"streams":[{"codec_type":"video","codec_name":"h264","width":96,"height":72,"avg_frame_rate":"30/1"}],"format":{"duration":"0.5","format_name":"mov"}}'`+"\n",
	)
	cfg.FFmpeg.Binary = ffmpeg

	configPath := filepath.Join(base, "turntable.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func turningOffsets(n int) [][2]float64 {
	offsets := make([][2]float64, n)
	for i := range offsets {
		offsets[i] = [2]float64{float64(i) * 1.5, float64(i%3) * 0.5}
	}
	return offsets
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	return runCLIContext(context.Background(), configPath, args...)
}

func runCLIContext(ctx context.Context, configPath string, args ...string) (string, error) {
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
