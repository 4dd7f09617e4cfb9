package rotation

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"turntable/internal/frames"
	"turntable/internal/logging"
	"turntable/internal/motion"
)

// ErrNoFrames is returned when the stabilized sequence is empty.
var ErrNoFrames = errors.New("no stabilized frames")

// Normalization records how a Curve was scaled into [0,1].
type Normalization int

const (
	// Measured divides by the total accumulated motion.
	Measured Normalization = iota
	// UniformFallback is the ramp i/(N-1) used when no motion was detected.
	UniformFallback
)

func (n Normalization) String() string {
	if n == UniformFallback {
		return "uniform_fallback"
	}
	return "measured"
}

// Curve is a non-decreasing progress value in [0,1] per frame, starting at 0.
type Curve []float64

// Result carries the curve and how it was derived.
type Result struct {
	Curve         Curve
	Normalization Normalization
	// Travel is the total absolute horizontal motion in pixels.
	Travel    float64
	Estimates []motion.Estimate
}

// Accumulate builds the raw progress values: progress[0] = 0 and
// progress[i] = progress[i-1] + |dx_i|.
func Accumulate(displacements []motion.Displacement) []float64 {
	progress := make([]float64, len(displacements)+1)
	for i, d := range displacements {
		progress[i+1] = math.Abs(d.DX)
	}
	floats.CumSum(progress, progress)
	return progress
}

// Normalize rescales accumulated progress by its final value. When the final
// value is exactly zero the uniform ramp i/(N-1) is returned instead.
func Normalize(progress []float64) (Curve, Normalization) {
	n := len(progress)
	if n == 0 {
		return Curve{}, Measured
	}
	total := progress[n-1]
	if total == 0 {
		return Ramp(n), UniformFallback
	}
	curve := make(Curve, n)
	copy(curve, progress)
	floats.Scale(1/total, curve)
	for i := range curve {
		curve[i] = math.Min(curve[i], 1)
	}
	curve[n-1] = 1
	return curve, Measured
}

// Ramp returns n evenly spaced values from 0 to 1 inclusive. A single frame
// yields [0].
func Ramp(n int) Curve {
	curve := make(Curve, n)
	if n <= 1 {
		return curve
	}
	for i := range curve {
		curve[i] = float64(i) / float64(n-1)
	}
	return curve
}

// Tracker measures rotational progress across a stabilized sequence.
type Tracker struct {
	estimator motion.Estimator
	logger    *slog.Logger
}

// NewTracker reuses est for the second motion pass.
func NewTracker(est motion.Estimator, logger *slog.Logger) *Tracker {
	return &Tracker{estimator: est, logger: logging.NewComponentLogger(logger, "rotation")}
}

// Track estimates motion over seq and returns the normalized curve. The curve
// has exactly seq.Len() entries; an unreadable frame contributes a flat step.
func (t *Tracker) Track(ctx context.Context, seq frames.Sequence) (Result, error) {
	logger := logging.WithContext(ctx, t.logger)
	if seq.Len() == 0 {
		return Result{}, ErrNoFrames
	}
	estimates, err := motion.EstimateSequence(ctx, t.estimator, seq, logger)
	if err != nil {
		return Result{}, err
	}
	progress := Accumulate(motion.Displacements(estimates))
	curve, norm := Normalize(progress)
	result := Result{
		Curve:         curve,
		Normalization: norm,
		Travel:        progress[len(progress)-1],
		Estimates:     estimates,
	}
	if norm == UniformFallback && seq.Len() > 1 {
		logging.WarnWithContext(logger, "no rotation detected; using uniform pacing", "rotation_fallback",
			logging.Int("frames", seq.Len()),
			logging.String(logging.FieldErrorHint, "ensure the object is textured and visibly turning"),
			logging.String(logging.FieldImpact, "output frames are evenly spaced in time"),
		)
	}
	logger.Info("rotation tracked",
		logging.Int("frames", seq.Len()),
		logging.Float64("travel_px", result.Travel),
		logging.String("normalization", norm.String()),
	)
	return result, nil
}
