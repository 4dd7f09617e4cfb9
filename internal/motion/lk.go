package motion

import "math"

// minEigThreshold rejects tracks whose window has too little texture for the
// normal equations to be well conditioned. It is compared against the
// smaller eigenvalue of the gradient matrix divided by the window area.
const minEigThreshold = 1e-4

// levelData caches what the tracker needs per pyramid level of the reference frame.
type levelData struct {
	img    *plane
	ix, iy *plane
}

type tracker struct {
	params Params
	prev   []levelData
	next   []*plane
}

func newTracker(prev, next *plane, params Params) *tracker {
	prevPyr := pyramid(prev, params.MaxLevel, params.WindowSize)
	nextPyr := pyramid(next, len(prevPyr)-1, params.WindowSize)
	levels := min(len(prevPyr), len(nextPyr))

	t := &tracker{params: params, prev: make([]levelData, levels), next: nextPyr[:levels]}
	for l := 0; l < levels; l++ {
		ix, iy := scharr(prevPyr[l])
		t.prev[l] = levelData{img: prevPyr[l], ix: ix, iy: iy}
	}
	return t
}

func inside(p point, w, h int, margin float64) bool {
	return p.x >= -margin && p.y >= -margin && p.x <= float64(w-1)+margin && p.y <= float64(h-1)+margin
}

// track follows pt from the reference frame into the next frame, coarse to
// fine. It reports false when the track leaves the image or the window is
// too flat to solve at the finest level.
func (t *tracker) track(pt point) (point, bool) {
	half := (t.params.WindowSize - 1) / 2
	area := float64(t.params.WindowSize * t.params.WindowSize)
	eps2 := t.params.Epsilon * t.params.Epsilon
	n := t.params.WindowSize * t.params.WindowSize

	iw := make([]float64, n)
	ixw := make([]float64, n)
	iyw := make([]float64, n)

	top := len(t.prev) - 1
	var next point
	for level := top; level >= 0; level-- {
		scale := 1 / float64(int(1)<<level)
		prev := point{x: pt.x * scale, y: pt.y * scale}
		if level == top {
			next = prev
		} else {
			next = point{x: next.x * 2, y: next.y * 2}
		}

		ld := t.prev[level]
		j := t.next[level]
		if !inside(prev, ld.img.w, ld.img.h, float64(half)) {
			if level == 0 {
				return next, false
			}
			continue
		}

		var a11, a12, a22 float64
		k := 0
		for dy := -half; dy <= half; dy++ {
			for dx := -half; dx <= half; dx++ {
				x, y := prev.x+float64(dx), prev.y+float64(dy)
				iw[k] = ld.img.sample(x, y)
				gx, gy := ld.ix.sample(x, y), ld.iy.sample(x, y)
				ixw[k], iyw[k] = gx, gy
				a11 += gx * gx
				a12 += gx * gy
				a22 += gy * gy
				k++
			}
		}

		det := a11*a22 - a12*a12
		minEig := (a11 + a22 - math.Sqrt((a11-a22)*(a11-a22)+4*a12*a12)) / (2 * area)
		if minEig < minEigThreshold || det < 1e-12 {
			if level == 0 {
				return next, false
			}
			continue
		}

		for iter := 0; iter < t.params.MaxIterations; iter++ {
			if !inside(next, j.w, j.h, float64(half)) {
				if level == 0 {
					return next, false
				}
				break
			}
			var b1, b2 float64
			k = 0
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					diff := j.sample(next.x+float64(dx), next.y+float64(dy)) - iw[k]
					b1 += diff * ixw[k]
					b2 += diff * iyw[k]
					k++
				}
			}
			ddx := (a12*b2 - a22*b1) / det
			ddy := (a12*b1 - a11*b2) / det
			next.x += ddx
			next.y += ddy
			if ddx*ddx+ddy*ddy <= eps2 {
				break
			}
		}
	}

	base := t.next[0]
	if !inside(next, base.w, base.h, 0) {
		return next, false
	}
	return next, true
}
