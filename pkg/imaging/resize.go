package imaging

import (
	"math"

	"github.com/justyntemme/framego/pkg/frame"
)

// Linear performs linear interpolation between two samples.
// frac is the fractional position between y0 and y1 (0.0 to 1.0).
func Linear(y0, y1, frac float64) float64 {
	return y0 + (y1-y0)*frac
}

// samplePos maps a destination coordinate to the two source taps and the
// fractional weight between them, using pixel-center alignment
func samplePos(x, dstLen, srcLen int) (int, int, float64) {
	s := (float64(x)+0.5)*float64(srcLen)/float64(dstLen) - 0.5
	if s < 0 {
		s = 0
	}
	i0 := int(math.Floor(s))
	if i0 >= srcLen-1 {
		return srcLen - 1, srcLen - 1, 0
	}
	return i0, i0 + 1, s - float64(i0)
}

// Resize resamples src into dst with bilinear interpolation. Both buffers
// must share a pixel format; equal shapes degrade to a copy.
func Resize(dst, src *frame.Buffer) error {
	if err := sameFormat(dst, src); err != nil {
		return err
	}
	if dst.Descriptor().SameShape(src.Descriptor()) {
		return dst.CopyFrom(src)
	}

	dd, sd := dst.Descriptor(), src.Descriptor()
	bpp := dd.Format.BytesPerPixel()
	sstride := sd.Stride()
	spix := src.Pix()

	type tap struct {
		i0, i1 int
		frac   float64
	}
	xs := make([]tap, dd.Width)
	for x := range xs {
		i0, i1, f := samplePos(x, dd.Width, sd.Width)
		xs[x] = tap{i0 * bpp, i1 * bpp, f}
	}

	for y := 0; y < dd.Height; y++ {
		y0, y1, fy := samplePos(y, dd.Height, sd.Height)
		row0 := spix[y0*sstride : (y0+1)*sstride]
		row1 := spix[y1*sstride : (y1+1)*sstride]
		out := dst.Row(y)

		for x, t := range xs {
			for c := 0; c < bpp; c++ {
				top := Linear(float64(row0[t.i0+c]), float64(row0[t.i1+c]), t.frac)
				bottom := Linear(float64(row1[t.i0+c]), float64(row1[t.i1+c]), t.frac)
				out[x*bpp+c] = saturate(Linear(top, bottom, fy))
			}
		}
	}
	return nil
}
