package stabilize

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"turntable/internal/frames"
)

// Border selects how pixels exposed by a translation are filled.
type Border int

const (
	// BorderConstant fills exposed pixels with opaque black.
	BorderConstant Border = iota
	// BorderReplicate extends the nearest edge pixel.
	BorderReplicate
)

func (b Border) String() string {
	if b == BorderReplicate {
		return "replicate"
	}
	return "constant"
}

// ParseBorder maps a config value onto a Border.
func ParseBorder(value string) (Border, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "constant":
		return BorderConstant, nil
	case "replicate":
		return BorderReplicate, nil
	default:
		return BorderConstant, fmt.Errorf("unknown border policy %q", value)
	}
}

// Translate returns a new image of the same size as src with its content
// moved by (tx, ty). src is never modified.
func Translate(src image.Image, tx, ty float64, border Border) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch border {
	case BorderReplicate:
		fillReplicate(dst, frames.ToRGBA(src), tx, ty)
	default:
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	}
	s2d := f64.Aff3{
		1, 0, tx - float64(b.Min.X),
		0, 1, ty - float64(b.Min.Y),
	}
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}

// fillReplicate paints every destination pixel with the nearest source pixel
// after clamping into the source bounds. Covered pixels are overwritten by
// the bilinear pass afterwards.
func fillReplicate(dst, src *image.RGBA, tx, ty float64) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	for y := 0; y < h; y++ {
		sy := clamp(int(math.Round(float64(y)-ty)), 0, h-1)
		for x := 0; x < w; x++ {
			sx := clamp(int(math.Round(float64(x)-tx)), 0, w-1)
			si := sy*src.Stride + sx*4
			di := y*dst.Stride + x*4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
