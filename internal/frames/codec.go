package frames

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"turntable/internal/fileutil"
)

// DefaultJPEGQuality matches the decoder's -qscale:v 2 output closely enough
// that re-encoding does not visibly degrade frames.
const DefaultJPEGQuality = 95

var decodable = map[string]bool{
	"jpg": true, "jpeg": true, "png": true,
	"bmp": true, "tif": true, "tiff": true, "webp": true,
}

// Supported reports whether name has a raster extension the package can decode.
func Supported(name string) bool {
	return decodable[Ext(name)]
}

// Decode reads and decodes a raster file.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Encode writes img to path in the format implied by its extension.
func Encode(path string, img image.Image, jpegQuality int) error {
	if jpegQuality <= 0 {
		jpegQuality = DefaultJPEGQuality
	}
	var enc func(io.Writer) error
	switch Ext(path) {
	case "jpg", "jpeg":
		enc = func(w io.Writer) error { return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality}) }
	case "png":
		enc = func(w io.Writer) error { return png.Encode(w, img) }
	case "bmp":
		enc = func(w io.Writer) error { return bmp.Encode(w, img) }
	case "tif", "tiff":
		enc = func(w io.Writer) error { return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}) }
	default:
		return fmt.Errorf("encode %s: unsupported output format %q", path, Ext(path))
	}
	return fileutil.WriteAtomic(path, enc)
}

// Gray converts img to 8-bit luma using the ITU-R 601 weights.
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// DecodeGray reads path and converts it to grayscale.
func DecodeGray(path string) (*image.Gray, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return Gray(img), nil
}

// ToRGBA returns img as a zero-origin *image.RGBA, copying when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
