package testsupport

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"turntable/internal/frames"
)

type blob struct {
	cx, cy float64
	sigma  float64
	amp    float64
}

// Scene is a deterministic field of Gaussian blobs. Rendering it at an
// offset moves every blob by that offset, so the true displacement between
// two renders is known exactly.
type Scene struct {
	W, H  int
	blobs []blob
}

// NewScene lays out count blobs over a w x h canvas, keeping them away from
// the edges so small offsets never drag texture across the border.
func NewScene(w, h, count int, seed uint64) *Scene {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := &Scene{W: w, H: h}
	margin := float64(min(20, w/4, h/4))
	for i := 0; i < count; i++ {
		amp := 90 + rng.Float64()*90
		if rng.IntN(2) == 0 {
			amp = -amp
		}
		s.blobs = append(s.blobs, blob{
			cx:    margin + rng.Float64()*(float64(w)-2*margin),
			cy:    margin + rng.Float64()*(float64(h)-2*margin),
			sigma: 2.5 + rng.Float64()*2.5,
			amp:   amp,
		})
	}
	return s
}

func (s *Scene) value(x, y, offX, offY float64) uint8 {
	v := 128.0
	for _, b := range s.blobs {
		dx := x - (b.cx + offX)
		dy := y - (b.cy + offY)
		d2 := dx*dx + dy*dy
		if d2 > 36*b.sigma*b.sigma {
			continue
		}
		v += b.amp * math.Exp(-d2/(2*b.sigma*b.sigma))
	}
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// Gray renders the scene shifted by (offX, offY).
func (s *Scene) Gray(offX, offY float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.W, s.H))
	for y := 0; y < s.H; y++ {
		for x := 0; x < s.W; x++ {
			img.Pix[y*img.Stride+x] = s.value(float64(x), float64(y), offX, offY)
		}
	}
	return img
}

// RGBA renders the scene shifted by (offX, offY) as an opaque colour image.
func (s *Scene) RGBA(offX, offY float64) *image.RGBA {
	g := s.Gray(offX, offY)
	img := image.NewRGBA(g.Bounds())
	for i, v := range g.Pix {
		img.SetRGBA(i%s.W, i/s.W, color.RGBA{R: v, G: v, B: v, A: 255})
	}
	return img
}

// WriteSequence renders one lossless frame per offset into dir using the
// decoder's naming scheme and returns the resulting sequence.
func WriteSequence(t testing.TB, dir string, s *Scene, offsets [][2]float64) frames.Sequence {
	t.Helper()
	names := make([]string, len(offsets))
	for i, off := range offsets {
		names[i] = frames.ExtractedName(i+1, "png")
		if err := frames.Encode(filepath.Join(dir, names[i]), s.RGBA(off[0], off[1]), 0); err != nil {
			t.Fatalf("encode frame %d: %v", i, err)
		}
	}
	return frames.Sequence{Dir: dir, Names: names}
}
