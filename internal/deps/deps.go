package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"turntable/internal/config"
)

// versionTimeout bounds the `-version` call made for each found binary.
const versionTimeout = time.Second

// Requirement is an external binary the pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after lookup.
type Status struct {
	Requirement
	Available bool
	// Detail explains why the binary is unavailable.
	Detail string
	// Version is the first line the binary prints for -version.
	Version string
}

var (
	ffmpegRequirement = Requirement{
		Name:        "FFmpeg",
		Description: "Decodes uploaded video into frames",
	}
	ffprobeRequirement = Requirement{
		Name:        "FFprobe",
		Command:     "ffprobe",
		Description: "Inspects uploads before decoding",
		Optional:    true,
	}
)

// Requirements lists the binaries the configured pipeline uses.
func Requirements(cfg *config.Config) []Requirement {
	ffmpeg := ffmpegRequirement
	ffmpeg.Command = strings.TrimSpace(cfg.FFmpeg.Binary)
	ffprobe := ffprobeRequirement
	ffprobe.Command = ResolveFFprobe(ffmpeg.Command).Command
	return []Requirement{ffmpeg, ffprobe}
}

// CheckBinaries looks up every requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = check(req)
	}
	return results
}

func check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	st := Status{Requirement: req}
	if req.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	resolved, err := exec.LookPath(req.Command)
	if err != nil {
		st.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return st
	}
	st.Available = true
	st.Version = versionLine(resolved)
	return st
}

// MissingRequired names the unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, st := range statuses {
		if !st.Available && !st.Optional {
			missing = append(missing, st.Name)
		}
	}
	return missing
}

func versionLine(binary string) string {
	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(first)
}

// ResolveFFmpeg returns the absolute path of binary, defaulting to "ffmpeg".
func ResolveFFmpeg(binary string) (string, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("binary %q not found: %w", binary, err)
	}
	return path, nil
}

// ResolveFFprobe finds the ffprobe paired with ffmpegCommand. An executable
// ffprobe in the same directory as the resolved ffmpeg is preferred over the
// one on PATH, since custom ffmpeg builds ship both together.
func ResolveFFprobe(ffmpegCommand string) Status {
	st := Status{Requirement: ffprobeRequirement}
	if sibling, ok := siblingProbe(ffmpegCommand); ok {
		st.Command = sibling
		st.Available = true
		return st
	}
	if path, err := exec.LookPath("ffprobe"); err == nil {
		st.Command = path
		st.Available = true
		return st
	}
	st.Detail = `binary "ffprobe" not found`
	return st
}

func siblingProbe(ffmpegCommand string) (string, bool) {
	ffmpegCommand = strings.TrimSpace(ffmpegCommand)
	if ffmpegCommand == "" {
		return "", false
	}
	ffmpeg, err := exec.LookPath(ffmpegCommand)
	if err != nil {
		return "", false
	}
	candidate := filepath.Join(filepath.Dir(ffmpeg), exe("ffprobe"))
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return "", false
	}
	return candidate, true
}

func exe(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
