package imaging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/framego/pkg/frame"
)

func filled(d frame.Descriptor, v byte) *frame.Buffer {
	b := frame.NewOwned(d)
	pix := b.Pix()
	for i := range pix {
		pix[i] = v
	}
	return b
}

func TestGray(t *testing.T) {
	d := frame.NewDescriptor(1, 1, frame.FormatBGRA32)
	src := frame.NewOwned(d)
	copy(src.Pix(), []byte{0, 0, 255, 9})
	dst := frame.NewOwned(d)

	require.NoError(t, Gray(dst, src))
	assert.Equal(t, []byte{76, 76, 76, 9}, dst.Pix(), "luma replicated, alpha kept")

	rgb := frame.NewOwned(frame.NewDescriptor(1, 1, frame.FormatRGB24))
	copy(rgb.Pix(), []byte{255, 0, 0})
	assert.Equal(t, []uint8{76}, Luma(rgb))

	assert.ErrorIs(t, Gray(frame.NewOwned(frame.NewDescriptor(2, 1, frame.FormatBGRA32)), src), frame.ErrShapeMismatch)
}

func TestResize(t *testing.T) {
	src := frame.NewOwned(frame.NewDescriptor(2, 1, frame.FormatGray8))
	copy(src.Pix(), []byte{0, 100})

	dst := frame.NewOwned(frame.NewDescriptor(4, 1, frame.FormatGray8))
	require.NoError(t, Resize(dst, src))
	assert.Equal(t, []byte{0, 25, 75, 100}, dst.Pix())

	t.Run("upscale single pixel", func(t *testing.T) {
		one := filled(frame.NewDescriptor(1, 1, frame.FormatBGR24), 7)
		big := frame.NewOwned(frame.NewDescriptor(3, 2, frame.FormatBGR24))
		require.NoError(t, Resize(big, one))
		assert.Equal(t, bytes.Repeat([]byte{7}, 18), big.Pix())
	})

	t.Run("same shape copies", func(t *testing.T) {
		same := frame.NewOwned(src.Descriptor())
		require.NoError(t, Resize(same, src))
		assert.Equal(t, src.Pix(), same.Pix())
	})

	t.Run("format mismatch", func(t *testing.T) {
		other := frame.NewOwned(frame.NewDescriptor(4, 1, frame.FormatBGR24))
		assert.ErrorIs(t, Resize(other, src), ErrFormat)
	})
}

func TestGaussianKernel(t *testing.T) {
	k := GaussianKernel(4, 0)
	require.Len(t, k, 5, "even sizes round up")

	sum := 0.0
	for _, w := range k {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, k[0], k[4], 1e-12)
	assert.Greater(t, k[2], k[1])

	assert.Equal(t, []float64{1}, GaussianKernel(0, 0))
	assert.InDelta(t, 2.6, GaussianSigma(15), 1e-9)
}

func TestReflect101(t *testing.T) {
	assert.Equal(t, 1, reflect101(-1, 5))
	assert.Equal(t, 3, reflect101(5, 5))
	assert.Equal(t, 0, reflect101(-3, 1))
	assert.Equal(t, 2, reflect101(-6, 3))
}

func TestGaussianBlur(t *testing.T) {
	d := frame.NewDescriptor(5, 5, frame.FormatGray8)

	uniform := filled(d, 80)
	out := frame.NewOwned(d)
	require.NoError(t, GaussianBlur(out, uniform, 5))
	assert.Equal(t, uniform.Pix(), out.Pix())

	spike := frame.NewOwned(d)
	spike.Pix()[12] = 255
	require.NoError(t, GaussianBlur(out, spike, 3))
	center := out.Pix()[12]
	assert.Less(t, center, uint8(255))
	assert.Greater(t, out.Pix()[11], uint8(0))
	assert.Greater(t, center, out.Pix()[11])

	require.NoError(t, GaussianBlur(out, spike, 1))
	assert.Equal(t, spike.Pix(), out.Pix())
}

func TestEdges(t *testing.T) {
	d := frame.NewDescriptor(8, 8, frame.FormatGray8)
	step := frame.NewOwned(d)
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			step.Row(y)[x] = 255
		}
	}

	out := frame.NewOwned(d)
	require.NoError(t, Edges(out, step))
	for y := 0; y < 8; y++ {
		want := make([]byte, 8)
		want[3] = 255
		assert.Equal(t, want, out.Row(y), "row %d", y)
	}

	require.NoError(t, Edges(out, filled(d, 120)))
	assert.Equal(t, make([]byte, 64), out.Pix(), "flat image has no edges")
}

func TestBlend(t *testing.T) {
	d := frame.NewDescriptor(2, 1, frame.FormatGray8)
	a, b, out := filled(d, 0), filled(d, 200), frame.NewOwned(d)

	require.NoError(t, Blend(out, a, b, 0.25))
	assert.Equal(t, []byte{50, 50}, out.Pix())

	require.NoError(t, Blend(out, a, b, 7))
	assert.Equal(t, []byte{200, 200}, out.Pix())

	small := frame.NewOwned(frame.NewDescriptor(1, 1, frame.FormatGray8))
	assert.ErrorIs(t, Blend(out, a, small, 0.5), frame.ErrShapeMismatch)
}

func TestAverage(t *testing.T) {
	d := frame.NewDescriptor(1, 1, frame.FormatGray8)
	out := frame.NewOwned(d)

	require.NoError(t, Average(out, []*frame.Buffer{filled(d, 10), filled(d, 20), filled(d, 31)}))
	assert.Equal(t, []byte{20}, out.Pix())

	require.NoError(t, Average(out, []*frame.Buffer{filled(d, 1), filled(d, 2)}))
	assert.Equal(t, []byte{2}, out.Pix())

	assert.Error(t, Average(out, nil))
}
