package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"turntable/internal/config"
	"turntable/internal/deps"
	"turntable/internal/frames"
	"turntable/internal/logging"
	"turntable/internal/services"
)

// stderrLimit caps how much decoder output is carried into error messages.
const stderrLimit = 500

var (
	// ErrEmptyVideo is returned for a missing or zero-byte video file.
	ErrEmptyVideo = errors.New("video file is empty")
	// ErrNoFrames is returned when the decoder produced nothing.
	ErrNoFrames = errors.New("no frames extracted")
)

// FFmpeg runs the ffmpeg binary to split a video into frames.
type FFmpeg struct {
	binary    string
	frameRate int
	qscale    int
	ext       string
	logger    *slog.Logger
}

// New builds a decoder from the [ffmpeg] config section.
func New(cfg config.FFmpeg, logger *slog.Logger) *FFmpeg {
	return &FFmpeg{
		binary:    cfg.Binary,
		frameRate: cfg.FrameRate,
		qscale:    cfg.QScale,
		ext:       cfg.FrameExtension,
		logger:    logging.NewComponentLogger(logger, "extract"),
	}
}

// Args returns the ffmpeg argument list for decoding videoPath into outDir.
func (f *FFmpeg) Args(videoPath, outDir string) []string {
	pattern := filepath.Join(outDir, frames.ExtractedPattern+"."+f.ext)
	return []string{
		"-hide_banner",
		"-i", videoPath,
		"-vf", "fps=" + strconv.Itoa(f.frameRate),
		"-qscale:v", strconv.Itoa(f.qscale),
		"-y",
		pattern,
	}
}

// Extract decodes videoPath into outDir and returns the resulting sequence.
func (f *FFmpeg) Extract(ctx context.Context, videoPath, outDir string) (frames.Sequence, error) {
	logger := logging.WithContext(ctx, f.logger)

	videoPath, err := filepath.Abs(videoPath)
	if err != nil {
		return frames.Sequence{}, services.Wrap(services.ErrValidation, "extract", "resolve video path", "", err)
	}
	outDir, err = filepath.Abs(outDir)
	if err != nil {
		return frames.Sequence{}, services.Wrap(services.ErrValidation, "extract", "resolve output path", "", err)
	}
	info, err := os.Stat(videoPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return frames.Sequence{}, services.Wrap(services.ErrValidation, "extract", "", "video file not found: "+filepath.Base(videoPath), ErrEmptyVideo)
		}
		return frames.Sequence{}, services.Wrap(services.ErrValidation, "extract", "stat video", "", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return frames.Sequence{}, services.Wrap(services.ErrValidation, "extract", "", filepath.Base(videoPath), ErrEmptyVideo)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return frames.Sequence{}, fmt.Errorf("create extract dir: %w", err)
	}

	binary, err := deps.ResolveFFmpeg(f.binary)
	if err != nil {
		return frames.Sequence{}, services.Wrap(services.ErrConfiguration, "extract", "locate ffmpeg",
			"install ffmpeg or set ffmpeg.binary / FFMPEG_PATH", err)
	}

	if probe := deps.ResolveFFprobe(binary); probe.Available {
		video, probeErr := Probe(ctx, probe.Command, videoPath)
		switch {
		case errors.Is(probeErr, errNoVideoStream):
			return frames.Sequence{}, services.Wrap(services.ErrValidation, "extract", "probe", "upload contains no video stream", nil)
		case probeErr != nil:
			logger.Debug("ffprobe inspection failed; continuing with ffmpeg", logging.Error(probeErr))
		default:
			logger.Info("video probed",
				logging.String("codec", video.Codec),
				logging.Int("width", video.Width),
				logging.Int("height", video.Height),
				logging.Float64("frame_rate", video.FrameRate),
				logging.Float64("duration_seconds", video.DurationSeconds),
			)
		}
	}

	args := f.Args(videoPath, outDir)
	logger.Debug("running ffmpeg", logging.String("binary", binary), logging.String("args", strings.Join(args, " ")))
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return frames.Sequence{}, ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = "unknown ffmpeg error"
		}
		return frames.Sequence{}, services.Wrap(services.ErrExternalTool, "extract", "ffmpeg",
			fmt.Sprintf("ffmpeg failed (%s): %s", exitDescription(err), truncate(detail, stderrLimit)), nil)
	}

	seq, err := frames.List(outDir, frames.ExtractedPrefix)
	if err != nil {
		return frames.Sequence{}, services.Wrap(services.ErrExternalTool, "extract", "list frames", "", err)
	}
	if seq.Len() == 0 {
		return frames.Sequence{}, services.Wrap(services.ErrExternalTool, "extract", "", "", ErrNoFrames)
	}
	logger.Info("frames extracted",
		logging.Int("frames", seq.Len()),
		logging.Int("fps", f.frameRate),
	)
	return seq, nil
}

func exitDescription(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "code " + strconv.Itoa(exitErr.ExitCode())
	}
	return err.Error()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
