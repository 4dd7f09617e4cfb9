package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"turntable/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckDiskSpace("space", dir, 1); !r.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got %s", r.Detail)
	}
	if r := CheckDiskSpace("space", dir, ^uint64(0)); r.Passed {
		t.Fatal("expected failure with impossible minimum")
	}
	if r := CheckDiskSpace("space", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckDiskSpaceReportsHumanSizes(t *testing.T) {
	r := CheckDiskSpace("space", t.TempDir(), 1<<60)
	if r.Passed {
		t.Fatal("expected failure for an exabyte requirement")
	}
	if !strings.Contains(r.Detail, "need 1.0 EiB") {
		t.Fatalf("detail = %q", r.Detail)
	}
}

func TestCheckHostingEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if r := CheckHostingEndpoint(context.Background(), srv.URL); !r.Passed {
		t.Fatalf("expected reachable, got %s", r.Detail)
	}
	if r := CheckHostingEndpoint(context.Background(), ""); r.Passed {
		t.Fatal("expected failure for missing endpoint")
	}
	srv.Close()
	if r := CheckHostingEndpoint(context.Background(), srv.URL); r.Passed {
		t.Fatal("expected failure for closed server")
	}
}

func TestCheckFFmpegUsesStub(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if r := CheckFFmpeg(cfg); !r.Passed {
		t.Fatalf("expected stubbed ffmpeg to pass, got %s", r.Detail)
	}

	cfg.FFmpeg.Binary = filepath.Join(t.TempDir(), "missing-ffmpeg")
	if r := CheckFFmpeg(cfg); r.Passed {
		t.Fatal("expected failure for missing binary")
	}
}

func TestRunAllSkipsHostingWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg)
	for _, r := range results {
		if r.Name == "Image hosting" {
			t.Fatal("hosting check should be skipped without a cloud name")
		}
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
}
