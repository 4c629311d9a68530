package imaging

import (
	"errors"
	"math"

	"github.com/justyntemme/framego/pkg/frame"
)

// Blend writes a*(1-alpha) + b*alpha into dst. All three buffers must share a shape.
func Blend(dst, a, b *frame.Buffer, alpha float64) error {
	if err := sameShape(dst, a); err != nil {
		return err
	}
	if err := sameShape(dst, b); err != nil {
		return err
	}

	alpha = math.Max(0, math.Min(1, alpha))
	apix, bpix, dpix := a.Pix(), b.Pix(), dst.Pix()
	for i := range dpix {
		dpix[i] = saturate(float64(apix[i])*(1-alpha) + float64(bpix[i])*alpha)
	}
	return nil
}

// Average writes the per-byte mean of frames into dst
func Average(dst *frame.Buffer, frames []*frame.Buffer) error {
	if len(frames) == 0 {
		return errors.New("imaging: nothing to average")
	}
	for _, f := range frames {
		if err := sameShape(dst, f); err != nil {
			return err
		}
	}

	dpix := dst.Pix()
	sums := make([]uint32, len(dpix))
	for _, f := range frames {
		for i, v := range f.Pix() {
			sums[i] += uint32(v)
		}
	}
	n := float64(len(frames))
	for i, s := range sums {
		dpix[i] = saturate(float64(s) / n)
	}
	return nil
}
