package motion

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"

	"turntable/internal/config"
)

// Displacement is the estimated motion of a frame relative to its predecessor.
type Displacement struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Outcome tags how a Displacement was obtained.
type Outcome int

const (
	// Measured means at least one feature converged.
	Measured Outcome = iota
	// NoFeatures means the reference frame had no trackable corners.
	NoFeatures
	// NoConverged means corners were found but none tracked successfully.
	NoConverged
	// Unreadable means one of the frames could not be decoded.
	Unreadable
)

func (o Outcome) String() string {
	switch o {
	case Measured:
		return "measured"
	case NoFeatures:
		return "no_features"
	case NoConverged:
		return "no_converged"
	case Unreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Fallback reports whether the displacement is a substituted zero.
func (o Outcome) Fallback() bool {
	return o != Measured
}

// Estimate is one frame-pair result. Every non-Measured outcome carries a zero Displacement.
type Estimate struct {
	Displacement
	Outcome  Outcome
	Features int
	Tracked  int
}

// Estimator measures the displacement of b relative to a.
type Estimator interface {
	Estimate(a, b *image.Gray) Estimate
}

// Native is the pure Go Shi-Tomasi + pyramidal Lucas-Kanade estimator.
type Native struct {
	params Params
}

// NewNative returns a Native estimator using params.
func NewNative(params Params) *Native {
	return &Native{params: params}
}

// Estimate implements Estimator.
func (n *Native) Estimate(a, b *image.Gray) Estimate {
	if a == nil || b == nil {
		return Estimate{Outcome: Unreadable}
	}
	prev := planeFromGray(a)
	corners := goodFeatures(prev, n.params)
	if len(corners) == 0 {
		return Estimate{Outcome: NoFeatures}
	}
	if a.Bounds().Size() != b.Bounds().Size() {
		return Estimate{Outcome: NoConverged, Features: len(corners)}
	}

	t := newTracker(prev, planeFromGray(b), n.params)
	dxs := make([]float64, 0, len(corners))
	dys := make([]float64, 0, len(corners))
	for _, c := range corners {
		tracked, ok := t.track(c)
		if !ok {
			continue
		}
		dxs = append(dxs, tracked.x-c.x)
		dys = append(dys, tracked.y-c.y)
	}
	if len(dxs) == 0 {
		return Estimate{Outcome: NoConverged, Features: len(corners)}
	}
	return Estimate{
		Displacement: Displacement{DX: stat.Mean(dxs, nil), DY: stat.Mean(dys, nil)},
		Outcome:      Measured,
		Features:     len(corners),
		Tracked:      len(dxs),
	}
}

// openCVFactory is populated by the gocv build.
var openCVFactory func(Params) Estimator

// New returns the estimator selected by cfg.Backend.
func New(cfg config.Motion) (Estimator, error) {
	params := ParamsFromConfig(cfg)
	switch cfg.Backend {
	case "", "native":
		return NewNative(params), nil
	case "opencv":
		if openCVFactory == nil {
			return nil, fmt.Errorf("motion backend %q requires a build with -tags gocv", cfg.Backend)
		}
		return openCVFactory(params), nil
	default:
		return nil, fmt.Errorf("unknown motion backend %q", cfg.Backend)
	}
}
