package motion

import (
	"math"
	"slices"
)

type point struct {
	x, y float64
}

// sobel returns raw 3x3 Sobel derivatives. Scale does not matter for corner
// ranking because the quality threshold is relative to the strongest corner.
func sobel(p *plane) (*plane, *plane) {
	dx, dy := newPlane(p.w, p.h), newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			tl, tc, tr := p.reflect(x-1, y-1), p.reflect(x, y-1), p.reflect(x+1, y-1)
			ml, mr := p.reflect(x-1, y), p.reflect(x+1, y)
			bl, bc, br := p.reflect(x-1, y+1), p.reflect(x, y+1), p.reflect(x+1, y+1)
			dx.pix[y*p.w+x] = (tr - tl) + 2*(mr-ml) + (br - bl)
			dy.pix[y*p.w+x] = (bl - tl) + 2*(bc-tc) + (br - tr)
		}
	}
	return dx, dy
}

// boxSum sums p over a size x size window centred on each pixel.
func boxSum(p *plane, size int) *plane {
	r := size / 2
	tmp := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			var acc float64
			for k := -r; k <= r; k++ {
				acc += p.reflect(x+k, y)
			}
			tmp.pix[y*p.w+x] = acc
		}
	}
	out := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			var acc float64
			for k := -r; k <= r; k++ {
				acc += tmp.reflect(x, y+k)
			}
			out.pix[y*p.w+x] = acc
		}
	}
	return out
}

// minEigen computes the Shi-Tomasi corner response for every pixel.
func minEigen(p *plane, block int) *plane {
	dx, dy := sobel(p)
	xx, xy, yy := newPlane(p.w, p.h), newPlane(p.w, p.h), newPlane(p.w, p.h)
	for i := range p.pix {
		xx.pix[i] = dx.pix[i] * dx.pix[i]
		xy.pix[i] = dx.pix[i] * dy.pix[i]
		yy.pix[i] = dy.pix[i] * dy.pix[i]
	}
	xx, xy, yy = boxSum(xx, block), boxSum(xy, block), boxSum(yy, block)

	eig := newPlane(p.w, p.h)
	for i := range eig.pix {
		a, b, c := xx.pix[i], xy.pix[i], yy.pix[i]
		half := (a - c) / 2
		eig.pix[i] = (a+c)/2 - math.Sqrt(half*half+b*b)
	}
	return eig
}

type candidate struct {
	x, y     int
	response float64
}

// goodFeatures selects up to MaxFeatures corners, strongest first, keeping
// only local maxima above QualityLevel times the strongest response and at
// least MinDistance apart.
func goodFeatures(p *plane, params Params) []point {
	if p.w < 3 || p.h < 3 || params.MaxFeatures <= 0 {
		return nil
	}
	eig := minEigen(p, params.BlockSize)

	maxResponse := 0.0
	for _, v := range eig.pix {
		if v > maxResponse {
			maxResponse = v
		}
	}
	if maxResponse <= 0 {
		return nil
	}
	threshold := maxResponse * params.QualityLevel

	var candidates []candidate
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			v := eig.at(x, y)
			if v <= threshold {
				continue
			}
			if isLocalMax(eig, x, y, v) {
				candidates = append(candidates, candidate{x: x, y: y, response: v})
			}
		}
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.response > b.response:
			return -1
		case a.response < b.response:
			return 1
		}
		return 0
	})

	minDist2 := params.MinDistance * params.MinDistance
	selected := make([]point, 0, min(len(candidates), params.MaxFeatures))
	for _, c := range candidates {
		pt := point{x: float64(c.x), y: float64(c.y)}
		if minDist2 > 0 && tooClose(selected, pt, minDist2) {
			continue
		}
		selected = append(selected, pt)
		if len(selected) == params.MaxFeatures {
			break
		}
	}
	return selected
}

// isLocalMax reports whether v is the maximum of its 3x3 neighbourhood.
// Thresholded-away neighbours count as zero.
func isLocalMax(eig *plane, x, y int, v float64) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if eig.at(x+dx, y+dy) > v {
				return false
			}
		}
	}
	return true
}

func tooClose(selected []point, pt point, minDist2 float64) bool {
	for _, s := range selected {
		dx, dy := s.x-pt.x, s.y-pt.y
		if dx*dx+dy*dy < minDist2 {
			return true
		}
	}
	return false
}
