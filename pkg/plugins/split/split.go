// Package split provides a one-to-many plugin fanning a stream out into
// derived views.
package split

import (
	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/bus"
	fwplugin "github.com/justyntemme/framego/pkg/framework/plugin"
	"github.com/justyntemme/framego/pkg/framework/process"
	"github.com/justyntemme/framego/pkg/imaging"
	"github.com/justyntemme/framego/pkg/loader"
	"github.com/justyntemme/framego/pkg/plugin"
)

// MaxOutputs is the number of views split can produce
const MaxOutputs = 4

// BlurKernelSize is the kernel size of the blurred view
const BlurKernelSize = 15

// GetDescriptor is the plugin's registration entry point
var GetDescriptor = plugin.Entry(fwplugin.Info{
	Name:        "split",
	Description: "Single input to multiple outputs",
	Version:     "1.0.0",
	Vendor:      "framego",
}, func() plugin.Instance { return New() })

func init() {
	loader.MustRegister(GetDescriptor)
}

// Split takes one input and writes up to four views of it, all in the
// input's shape:
//
//	0  the input itself, passed through without copying
//	1  grayscale
//	2  Canny edges
//	3  Gaussian blur
type Split struct {
	*fwplugin.Base
}

// New creates a split instance
func New() *Split {
	s := &Split{
		Base: fwplugin.NewBase(bus.Requirement{
			MinInputs:  1,
			MaxInputs:  1,
			MinOutputs: 1,
			MaxOutputs: MaxOutputs,
		}),
	}
	s.OnConfigure(func(inputs, outputs []frame.Descriptor) error {
		for i := range outputs {
			outputs[i] = inputs[0]
		}
		return nil
	})
	return s
}

// Process writes every configured view
func (s *Split) Process(ctx *process.Context) (plugin.Status, error) {
	if err := s.Validate(ctx); err != nil {
		return plugin.StatusError, err
	}

	src := ctx.Input[0]
	err := ctx.ProcessOutputs(func(i int, out *frame.Buffer) error {
		switch i {
		case 0:
			return out.Alias(src)
		case 1:
			return imaging.Gray(out, src)
		case 2:
			return imaging.Edges(out, src)
		default:
			return imaging.GaussianBlur(out, src, BlurKernelSize)
		}
	})
	if err != nil {
		return plugin.StatusError, err
	}
	return plugin.StatusOK, nil
}
