package motion

import (
	"image"
	"math"
)

// plane is a float grayscale raster with zero origin.
type plane struct {
	w, h int
	pix  []float64
}

func newPlane(w, h int) *plane {
	return &plane{w: w, h: h, pix: make([]float64, w*h)}
}

func planeFromGray(g *image.Gray) *plane {
	b := g.Bounds()
	p := newPlane(b.Dx(), b.Dy())
	for y := 0; y < p.h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < p.w; x++ {
			p.pix[y*p.w+x] = float64(row[x])
		}
	}
	return p
}

// reflect101 maps an out-of-range coordinate back inside [0,n) mirroring
// around the edge pixel (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func (p *plane) at(x, y int) float64 {
	return p.pix[y*p.w+x]
}

func (p *plane) reflect(x, y int) float64 {
	return p.pix[reflect101(y, p.h)*p.w+reflect101(x, p.w)]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sample returns the bilinear interpolation at (x, y), replicating edge pixels.
func (p *plane) sample(x, y float64) float64 {
	fx, fy := math.Floor(x), math.Floor(y)
	ax, ay := x-fx, y-fy
	x0, y0 := int(fx), int(fy)
	x0c, x1c := clampInt(x0, 0, p.w-1), clampInt(x0+1, 0, p.w-1)
	y0c, y1c := clampInt(y0, 0, p.h-1), clampInt(y0+1, 0, p.h-1)
	top := p.at(x0c, y0c)*(1-ax) + p.at(x1c, y0c)*ax
	bottom := p.at(x0c, y1c)*(1-ax) + p.at(x1c, y1c)*ax
	return top*(1-ay) + bottom*ay
}

// pyrDown blurs with the 5-tap binomial kernel and drops every other row and column.
func pyrDown(src *plane) *plane {
	kernel := [5]float64{1, 4, 6, 4, 1}
	tmp := newPlane(src.w, (src.h+1)/2)
	for y := 0; y < tmp.h; y++ {
		sy := 2 * y
		for x := 0; x < tmp.w; x++ {
			var acc float64
			for k := -2; k <= 2; k++ {
				acc += kernel[k+2] * src.reflect(x, sy+k)
			}
			tmp.pix[y*tmp.w+x] = acc / 16
		}
	}
	dst := newPlane((src.w+1)/2, tmp.h)
	for y := 0; y < dst.h; y++ {
		for x := 0; x < dst.w; x++ {
			sx := 2 * x
			var acc float64
			for k := -2; k <= 2; k++ {
				acc += kernel[k+2] * tmp.reflect(sx+k, y)
			}
			dst.pix[y*dst.w+x] = acc / 16
		}
	}
	return dst
}

// pyramid builds up to maxLevel coarser levels, stopping once a level would
// be smaller than the tracking window.
func pyramid(base *plane, maxLevel, window int) []*plane {
	levels := []*plane{base}
	for l := 1; l <= maxLevel; l++ {
		prev := levels[l-1]
		if (prev.w+1)/2 < window || (prev.h+1)/2 < window {
			break
		}
		levels = append(levels, pyrDown(prev))
	}
	return levels
}

// scharr returns per-pixel x and y derivatives using the 3x3 Scharr kernel
// normalized to intensity units per pixel.
func scharr(p *plane) (*plane, *plane) {
	ix, iy := newPlane(p.w, p.h), newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			tl, tc, tr := p.reflect(x-1, y-1), p.reflect(x, y-1), p.reflect(x+1, y-1)
			ml, mr := p.reflect(x-1, y), p.reflect(x+1, y)
			bl, bc, br := p.reflect(x-1, y+1), p.reflect(x, y+1), p.reflect(x+1, y+1)
			ix.pix[y*p.w+x] = (3*(tr-tl) + 10*(mr-ml) + 3*(br-bl)) / 32
			iy.pix[y*p.w+x] = (3*(bl-tl) + 10*(bc-tc) + 3*(br-tr)) / 32
		}
	}
	return ix, iy
}
