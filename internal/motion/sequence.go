package motion

import (
	"context"
	"image"
	"log/slog"

	"turntable/internal/frames"
	"turntable/internal/logging"
)

// EstimateSequence walks seq in order and returns one Estimate per adjacent
// pair, so a sequence of N frames always yields N-1 results. Each frame is
// compared with the most recent readable frame; an unreadable frame produces
// a zero Estimate tagged Unreadable and does not replace the reference. The
// only error is context cancellation.
func EstimateSequence(ctx context.Context, est Estimator, seq frames.Sequence, logger *slog.Logger) ([]Estimate, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	n := seq.Len()
	if n < 2 {
		return []Estimate{}, nil
	}

	out := make([]Estimate, 0, n-1)
	var ref *image.Gray
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		cur, err := frames.DecodeGray(seq.Path(i))
		if err != nil {
			logging.WarnWithContext(logger, "frame unreadable during motion estimation", "frame_unreadable",
				logging.String("frame", seq.Names[i]),
				logging.Int("index", i),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "re-encode the source video if many frames are affected"),
				logging.String(logging.FieldImpact, "pair treated as zero motion"),
			)
			if i > 0 {
				out = append(out, Estimate{Outcome: Unreadable})
			}
			continue
		}
		if i > 0 {
			if ref == nil {
				out = append(out, Estimate{Outcome: Unreadable})
			} else {
				e := est.Estimate(ref, cur)
				if e.Outcome.Fallback() {
					logger.Debug("motion fallback to zero",
						logging.String("frame", seq.Names[i]),
						logging.String("outcome", e.Outcome.String()),
						logging.Int("features", e.Features),
					)
				}
				out = append(out, e)
			}
		}
		ref = cur
	}
	return out, nil
}

// Displacements strips outcome tags from estimates.
func Displacements(estimates []Estimate) []Displacement {
	out := make([]Displacement, len(estimates))
	for i, e := range estimates {
		out[i] = e.Displacement
	}
	return out
}
