//go:build gocv

package motion

import (
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

func init() {
	openCVFactory = func(p Params) Estimator { return NewOpenCV(p) }
}

// OpenCV delegates corner detection and tracking to OpenCV through gocv.
// Corners are scored over a config.OpenCVBlockSize window whatever
// Params.BlockSize says; config.Warnings reports the mismatch.
type OpenCV struct {
	params Params
}

// NewOpenCV returns an OpenCV-backed estimator.
func NewOpenCV(params Params) *OpenCV {
	return &OpenCV{params: params}
}

func grayMat(g *image.Gray) (gocv.Mat, error) {
	b := g.Bounds()
	if g.Stride == b.Dx() {
		return gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, g.Pix)
	}
	packed := make([]byte, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		packed = append(packed, g.Pix[y*g.Stride:y*g.Stride+b.Dx()]...)
	}
	return gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, packed)
}

// Estimate implements Estimator.
func (o *OpenCV) Estimate(a, b *image.Gray) Estimate {
	if a == nil || b == nil {
		return Estimate{Outcome: Unreadable}
	}
	prev, err := grayMat(a)
	if err != nil {
		return Estimate{Outcome: Unreadable}
	}
	defer prev.Close()
	next, err := grayMat(b)
	if err != nil {
		return Estimate{Outcome: Unreadable}
	}
	defer next.Close()

	corners := gocv.NewMat()
	defer corners.Close()
	if err := gocv.GoodFeaturesToTrack(prev, &corners, o.params.MaxFeatures, o.params.QualityLevel, o.params.MinDistance); err != nil {
		return Estimate{Outcome: NoFeatures}
	}
	count := corners.Rows()
	if corners.Empty() || count == 0 {
		return Estimate{Outcome: NoFeatures}
	}
	if a.Bounds().Size() != b.Bounds().Size() {
		return Estimate{Outcome: NoConverged, Features: count}
	}

	tracked := gocv.NewMat()
	defer tracked.Close()
	status := gocv.NewMat()
	defer status.Close()
	errs := gocv.NewMat()
	defer errs.Close()

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, o.params.MaxIterations, o.params.Epsilon)
	if err := gocv.CalcOpticalFlowPyrLKWithParams(prev, next, corners, tracked, &status, &errs,
		image.Pt(o.params.WindowSize, o.params.WindowSize), o.params.MaxLevel, criteria, 0, minEigThreshold); err != nil {
		return Estimate{Outcome: NoConverged, Features: count}
	}

	dxs := make([]float64, 0, count)
	dys := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		if status.GetUCharAt(i, 0) != 1 {
			continue
		}
		from := corners.GetVecfAt(i, 0)
		to := tracked.GetVecfAt(i, 0)
		dxs = append(dxs, float64(to[0]-from[0]))
		dys = append(dys, float64(to[1]-from[1]))
	}
	if len(dxs) == 0 {
		return Estimate{Outcome: NoConverged, Features: count}
	}
	return Estimate{
		Displacement: Displacement{DX: stat.Mean(dxs, nil), DY: stat.Mean(dys, nil)},
		Outcome:      Measured,
		Features:     count,
		Tracked:      len(dxs),
	}
}
