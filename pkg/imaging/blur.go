package imaging

import (
	"math"

	"github.com/justyntemme/framego/pkg/frame"
)

// GaussianSigma returns the sigma used for a kernel size when none is given
func GaussianSigma(ksize int) float64 {
	return 0.3*(float64(ksize-1)*0.5-1) + 0.8
}

// GaussianKernel returns a normalized 1-D Gaussian kernel of odd size ksize.
// sigma <= 0 derives it from the size.
func GaussianKernel(ksize int, sigma float64) []float64 {
	if ksize < 1 {
		ksize = 1
	}
	if ksize%2 == 0 {
		ksize++
	}
	if sigma <= 0 {
		sigma = GaussianSigma(ksize)
	}

	kernel := make([]float64, ksize)
	half := ksize / 2
	sum := 0.0
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// reflect101 maps an out-of-range index back into 0..n-1 by mirroring
// around the edge pixels (dcb|abcd|cba)
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

// GaussianBlur writes a Gaussian-blurred copy of src into dst using a
// separable ksize x ksize kernel
func GaussianBlur(dst, src *frame.Buffer, ksize int) error {
	if err := sameShape(dst, src); err != nil {
		return err
	}
	if ksize <= 1 {
		return dst.CopyFrom(src)
	}

	kernel := GaussianKernel(ksize, 0)
	half := len(kernel) / 2

	d := src.Descriptor()
	bpp := d.Format.BytesPerPixel()
	stride := d.Stride()
	spix := src.Pix()

	// horizontal pass into a float plane, vertical pass into dst
	tmp := make([]float64, len(spix))
	for y := 0; y < d.Height; y++ {
		row := spix[y*stride : (y+1)*stride]
		for x := 0; x < d.Width; x++ {
			for c := 0; c < bpp; c++ {
				acc := 0.0
				for k, w := range kernel {
					sx := reflect101(x+k-half, d.Width)
					acc += w * float64(row[sx*bpp+c])
				}
				tmp[y*stride+x*bpp+c] = acc
			}
		}
	}

	dpix := dst.Pix()
	for y := 0; y < d.Height; y++ {
		for i := 0; i < stride; i++ {
			acc := 0.0
			for k, w := range kernel {
				sy := reflect101(y+k-half, d.Height)
				acc += w * tmp[sy*stride+i]
			}
			dpix[y*stride+i] = saturate(acc)
		}
	}
	return nil
}
