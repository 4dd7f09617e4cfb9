package stabilize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"turntable/internal/config"
	"turntable/internal/fileutil"
	"turntable/internal/frames"
	"turntable/internal/logging"
	"turntable/internal/motion"
)

// ErrNoFrames is returned when there is nothing to stabilize.
var ErrNoFrames = errors.New("no frames to stabilize")

// Stabilizer estimates, smooths, and cancels jitter across a sequence.
type Stabilizer struct {
	estimator   motion.Estimator
	border      Border
	jpegQuality int
	logger      *slog.Logger
}

// New builds a Stabilizer from the [stabilize] config section.
func New(est motion.Estimator, cfg config.Stabilize, logger *slog.Logger) (*Stabilizer, error) {
	border, err := ParseBorder(cfg.Border)
	if err != nil {
		return nil, err
	}
	return &Stabilizer{
		estimator:   est,
		border:      border,
		jpegQuality: cfg.JPEGQuality,
		logger:      logging.NewComponentLogger(logger, "stabilizer"),
	}, nil
}

// Report summarizes one stabilization run.
type Report struct {
	// Written lists output file names in sequence order.
	Written []string
	// Skipped lists source names that could not be decoded.
	Skipped []string
	// Estimates holds the raw per-pair motion, len = N-1.
	Estimates []motion.Estimate
	// Smoothed holds the filtered displacements, len = N-1.
	Smoothed []motion.Displacement
}

// Displacements returns the raw displacement values of the run.
func (r Report) Displacements() []motion.Displacement {
	return motion.Displacements(r.Estimates)
}

// Run writes the stabilized version of every decodable frame in seq into
// outDir under the same file name.
func (s *Stabilizer) Run(ctx context.Context, seq frames.Sequence, outDir string) (Report, error) {
	logger := logging.WithContext(ctx, s.logger)
	if seq.Len() == 0 {
		return Report{}, ErrNoFrames
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create stabilized dir: %w", err)
	}

	estimates, err := motion.EstimateSequence(ctx, s.estimator, seq, logger)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		Estimates: estimates,
		Smoothed:  Smooth(motion.Displacements(estimates)),
	}
	offsets := Cumulative(report.Smoothed)

	progress := logging.NewProgressSampler(25)
	for i, name := range seq.Names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if pct := logging.Percent(i, seq.Len()); progress.ShouldLog(pct, "warp") {
			logger.Debug("stabilizing frames",
				logging.Float64("progress_percent", pct),
				logging.Int("frame_index", i),
			)
		}
		src := seq.Path(i)
		img, err := frames.Decode(src)
		if err != nil {
			logging.WarnWithContext(logger, "skipping unreadable frame", "frame_skipped",
				logging.String("frame", name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "frame omitted from stabilized sequence"),
			)
			report.Skipped = append(report.Skipped, name)
			continue
		}

		dst := filepath.Join(outDir, name)
		off := offsets[i]
		if off.DX == 0 && off.DY == 0 {
			err = fileutil.CopyFile(src, dst)
		} else {
			err = frames.Encode(dst, Translate(img, -off.DX, -off.DY, s.border), s.jpegQuality)
		}
		if err != nil {
			return report, fmt.Errorf("write stabilized frame %s: %w", name, err)
		}
		report.Written = append(report.Written, name)
	}

	logger.Info("stabilization complete",
		logging.Int("frames", seq.Len()),
		logging.Int("written", len(report.Written)),
		logging.Int("skipped", len(report.Skipped)),
		logging.String("border", s.border.String()),
	)
	return report, nil
}
