package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame_0001.jpg")
	dst := filepath.Join(dir, "360_000.jpg")

	content := []byte("not really a jpeg")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "missing.jpg"), filepath.Join(dir, "out.jpg"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "frame.png")

	if err := WriteAtomic(dst, func(w io.Writer) error {
		_, err := io.WriteString(w, "pixels")
		return err
	}); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "pixels" {
		t.Fatalf("unexpected content %q (err=%v)", got, err)
	}

	failing := errors.New("encode failed")
	err = WriteAtomic(filepath.Join(dir, "broken.png"), func(io.Writer) error { return failing })
	if !errors.Is(err, failing) {
		t.Fatalf("expected encode error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleanup, found %d entries", len(entries))
	}
}

func TestSaveStream(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "upload.mp4")

	n, err := SaveStream(dst, strings.NewReader("0123456789"), 10)
	if err != nil {
		t.Fatalf("SaveStream: %v", err)
	}
	if n != 10 {
		t.Fatalf("expected 10 bytes, got %d", n)
	}

	_, err = SaveStream(dst, strings.NewReader("0123456789A"), 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, statErr := os.Stat(dst); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected oversized upload to be removed, stat err=%v", statErr)
	}

	if n, err := SaveStream(dst, strings.NewReader("unbounded"), 0); err != nil || n != 9 {
		t.Fatalf("unbounded save: n=%d err=%v", n, err)
	}
}
