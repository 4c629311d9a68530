// Package imaging provides the pixel operations used by the bundled plugins.
// All functions work on packed 8-bit frame buffers and never allocate output
// memory of their own; destinations are written in place.
package imaging

import (
	"errors"
	"fmt"
	"math"

	"github.com/justyntemme/framego/pkg/frame"
)

// ErrFormat is returned when buffers that must share a pixel format do not
var ErrFormat = errors.New("imaging: pixel format mismatch")

func sameShape(dst, src *frame.Buffer) error {
	if !dst.Descriptor().SameShape(src.Descriptor()) {
		return fmt.Errorf("%w: %s <- %s", frame.ErrShapeMismatch, dst.Descriptor(), src.Descriptor())
	}
	return nil
}

func sameFormat(dst, src *frame.Buffer) error {
	if dst.Descriptor().Format != src.Descriptor().Format {
		return fmt.Errorf("%w: %s <- %s", ErrFormat, dst.Descriptor().Format, src.Descriptor().Format)
	}
	return nil
}

// saturate rounds to the nearest byte value, clamping to 0..255
func saturate(v float64) uint8 {
	v = math.RoundToEven(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// colorChannels returns how many leading channels of a pixel carry color
func colorChannels(f frame.Format) int {
	if f == frame.FormatBGRA32 {
		return 3
	}
	return f.BytesPerPixel()
}

// luma returns the Rec.601 luma of one packed pixel
func luma(f frame.Format, p []byte) float64 {
	switch f {
	case frame.FormatGray8:
		return float64(p[0])
	case frame.FormatRGB24:
		return 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
	default:
		return 0.299*float64(p[2]) + 0.587*float64(p[1]) + 0.114*float64(p[0])
	}
}

// Luma extracts the luma plane of src, one byte per pixel
func Luma(src *frame.Buffer) []uint8 {
	d := src.Descriptor()
	bpp := d.Format.BytesPerPixel()
	pix := src.Pix()
	plane := make([]uint8, d.Width*d.Height)
	for i := range plane {
		plane[i] = saturate(luma(d.Format, pix[i*bpp:]))
	}
	return plane
}

// writePlane writes a one-byte-per-pixel plane into dst, replicating it over
// the color channels. Alpha, when present, is taken from alpha or set opaque.
func writePlane(dst *frame.Buffer, plane []uint8, alpha []byte) {
	d := dst.Descriptor()
	bpp := d.Format.BytesPerPixel()
	colors := colorChannels(d.Format)
	pix := dst.Pix()
	for i, v := range plane {
		p := pix[i*bpp : (i+1)*bpp]
		for c := 0; c < colors; c++ {
			p[c] = v
		}
		if bpp > colors {
			if alpha != nil {
				p[colors] = alpha[i*bpp+colors]
			} else {
				p[colors] = 0xff
			}
		}
	}
}

// Gray writes the grayscale version of src into dst, keeping src's format
func Gray(dst, src *frame.Buffer) error {
	if err := sameShape(dst, src); err != nil {
		return err
	}
	writePlane(dst, Luma(src), src.Pix())
	return nil
}
