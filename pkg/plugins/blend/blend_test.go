package blend

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/host"
	"github.com/justyntemme/framego/pkg/loader"
	"github.com/justyntemme/framego/pkg/plugin"
)

func solid(d frame.Descriptor, v byte) host.Frame {
	return host.Frame{Descriptor: d, Pix: bytes.Repeat([]byte{v}, d.Size())}
}

func TestRegistered(t *testing.T) {
	_, err := loader.Builtins().Lookup("blend")
	require.NoError(t, err)
}

func TestInitRequiresTwoToOne(t *testing.T) {
	for _, counts := range [][2]int{{1, 1}, {3, 1}, {2, 2}, {1, 2}} {
		b := New()
		assert.Error(t, b.Init("", counts[0], counts[1]), "%v", counts)
		assert.Nil(t, b.Config(), "no partial success for %v", counts)
	}
	require.NoError(t, New().Init("", 2, 1))
}

func TestAlphaParameter(t *testing.T) {
	tests := []struct {
		params string
		want   float64
	}{
		{"", DefaultAlpha},
		{"alpha=0.25", 0.25},
		{"alpha=2", 1},
		{"alpha=-0.5", 0},
		{"alpha=.75", 0.75},
		{"alpha=bad", 0},
	}

	for _, tt := range tests {
		b := New()
		require.NoError(t, b.Init(tt.params, 2, 1), tt.params)
		assert.Equal(t, tt.want, b.Alpha(), tt.params)
	}
}

func TestOutputTakesFirstInputShape(t *testing.T) {
	main := frame.NewDescriptor(4, 2, frame.FormatBGR24)
	overlays := []frame.Descriptor{
		main,
		frame.NewDescriptor(2, 1, frame.FormatBGR24),
		frame.NewDescriptor(9, 7, frame.FormatBGR24),
		frame.NewDescriptor(1, 1, frame.FormatBGR24),
	}

	for _, over := range overlays {
		t.Run(over.String(), func(t *testing.T) {
			s, err := host.NewStage(GetDescriptor())
			require.NoError(t, err)
			defer s.Uninit()

			require.NoError(t, s.Init("alpha=0.5", 2, 1))
			out, err := s.Configure([]frame.Descriptor{main, over})
			require.NoError(t, err)
			assert.Equal(t, []frame.Descriptor{main}, out)

			frames, status, err := s.Process([]host.Frame{solid(main, 0), solid(over, 200)})
			require.NoError(t, err)
			assert.Equal(t, plugin.StatusOK, status)
			assert.Equal(t, main, frames[0].Descriptor)
			assert.Equal(t, bytes.Repeat([]byte{100}, main.Size()), frames[0].Pix)
		})
	}
}

func TestConfigureRejectsMixedFormats(t *testing.T) {
	b := New()
	require.NoError(t, b.Init("", 2, 1))
	in := []frame.Descriptor{
		frame.NewDescriptor(4, 2, frame.FormatBGR24),
		frame.NewDescriptor(4, 2, frame.FormatGray8),
	}
	assert.Error(t, b.Configure(in, plugin.DefaultShapes(in, 1)))
}
