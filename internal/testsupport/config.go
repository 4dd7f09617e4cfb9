package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"turntable/internal/config"
)

// ConfigOption adjusts a config built by NewConfig. base is the test's
// temporary root directory.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns defaults rooted in a fresh temp directory, with the API
// on an ephemeral port, local frames under http://turntable.test and no
// upload backoff.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.API.Bind = "127.0.0.1:0"
	cfg.API.PublicBaseURL = "http://turntable.test"
	cfg.Hosting.RetryBackoffMS = 0
	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// BaseDir is the temp root NewConfig created for cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}

func WithTargetFrames(n int) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Pipeline.TargetFrames = n
	}
}

// WithHosting enables uploads to endpoint with an unsigned preset.
func WithHosting(endpoint string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Hosting.Endpoint = endpoint
		cfg.Hosting.CloudName = "demo"
		cfg.Hosting.UploadPreset = "unsigned_preset"
	}
}

// WithStubbedBinaries puts no-op executables named names (ffmpeg when empty)
// first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, _ *config.Config) {
		t.Helper()
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		bin := filepath.Join(base, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", bin, err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
