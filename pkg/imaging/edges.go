package imaging

import (
	"github.com/justyntemme/framego/pkg/frame"
)

// Default hysteresis thresholds for Edges
const (
	EdgeLow  = 50
	EdgeHigh = 150
)

const (
	tan22 = 0.41421356 // tan(22.5 deg)
	tan67 = 2.41421356 // tan(67.5 deg)
)

// EdgeMap runs Canny edge detection on a luma plane and returns a plane of
// 0 (no edge) and 255 (edge)
func EdgeMap(plane []uint8, width, height int, low, high float64) []uint8 {
	n := width * height
	mag := make([]float64, n)
	gxs := make([]float64, n)
	gys := make([]float64, n)

	at := func(x, y int) float64 {
		return float64(plane[reflect101(y, height)*width+reflect101(x, width)])
	}

	// 3x3 Sobel, L1 magnitude
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			i := y*width + x
			gxs[i], gys[i] = gx, gy
			mag[i] = abs(gx) + abs(gy)
		}
	}

	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= width || y >= height {
			return 0
		}
		return mag[y*width+x]
	}

	// non-maximum suppression, then classify
	const (
		none = iota
		weak
		strong
	)
	class := make([]uint8, n)
	stack := make([]int, 0, 64)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			m := mag[i]
			if m <= low {
				continue
			}
			ax, ay := abs(gxs[i]), abs(gys[i])
			var a, b float64
			switch {
			case ay <= ax*tan22:
				a, b = magAt(x-1, y), magAt(x+1, y)
			case ay >= ax*tan67:
				a, b = magAt(x, y-1), magAt(x, y+1)
			case gxs[i]*gys[i] > 0:
				a, b = magAt(x-1, y-1), magAt(x+1, y+1)
			default:
				a, b = magAt(x+1, y-1), magAt(x-1, y+1)
			}
			if m <= a || m < b {
				continue
			}
			if m > high {
				class[i] = strong
				stack = append(stack, i)
			} else {
				class[i] = weak
			}
		}
	}

	// hysteresis: weak pixels connected to a strong one become edges
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if class[j] == weak {
					class[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	out := make([]uint8, n)
	for i, c := range class {
		if c == strong {
			out[i] = 0xff
		}
	}
	return out
}

// Edges writes the Canny edge map of src into dst in src's format
func Edges(dst, src *frame.Buffer) error {
	if err := sameShape(dst, src); err != nil {
		return err
	}
	d := src.Descriptor()
	writePlane(dst, EdgeMap(Luma(src), d.Width, d.Height, EdgeLow, EdgeHigh), nil)
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
