// Package blend provides a two-input alpha blending plugin.
package blend

import (
	"fmt"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/bus"
	"github.com/justyntemme/framego/pkg/framework/param"
	fwplugin "github.com/justyntemme/framego/pkg/framework/plugin"
	"github.com/justyntemme/framego/pkg/framework/process"
	"github.com/justyntemme/framego/pkg/imaging"
	"github.com/justyntemme/framego/pkg/loader"
	"github.com/justyntemme/framego/pkg/plugin"
)

// DefaultAlpha is the overlay weight used when none is given
const DefaultAlpha = 0.5

// GetDescriptor is the plugin's registration entry point
var GetDescriptor = plugin.Entry(fwplugin.Info{
	Name:        "blend",
	Description: "Alpha blend two video streams",
	Version:     "1.0.0",
	Vendor:      "framego",
}, func() plugin.Instance { return New() })

func init() {
	loader.MustRegister(GetDescriptor)
}

// Blend mixes input 1 over input 0 as in0*(1-alpha) + in1*alpha. Input 1 is
// resampled to input 0's shape, which is always the output shape.
// Parameters:
//
//	alpha  overlay weight, 0..1 (default 0.5)
type Blend struct {
	*fwplugin.Base
	alpha   *param.Parameter
	overlay *frame.Buffer
}

// New creates a blend instance
func New() *Blend {
	b := &Blend{
		Base:  fwplugin.NewBase(bus.Exactly(2, 1)),
		alpha: param.Float("alpha").Range(0, 1).Default(DefaultAlpha).Build(),
	}
	b.Parameters().Add(b.alpha)

	b.OnConfigure(func(inputs, outputs []frame.Descriptor) error {
		main, over := inputs[0], inputs[1]
		if main.Format != over.Format {
			return fmt.Errorf("inputs must share a pixel format: %s and %s", main.Format, over.Format)
		}
		outputs[0] = main
		b.overlay = nil
		if !main.SameShape(over) {
			b.overlay = frame.NewOwned(main)
		}
		return nil
	})
	b.OnUninit(func() {
		if b.overlay != nil {
			b.overlay.Release()
			b.overlay = nil
		}
	})
	return b
}

// Alpha returns the effective overlay weight
func (b *Blend) Alpha() float64 {
	return b.alpha.GetValue()
}

// Process blends the two inputs into output 0
func (b *Blend) Process(ctx *process.Context) (plugin.Status, error) {
	if err := b.Validate(ctx); err != nil {
		return plugin.StatusError, err
	}

	over := ctx.Input[1]
	if b.overlay != nil {
		if err := imaging.Resize(b.overlay, over); err != nil {
			return plugin.StatusError, err
		}
		over = b.overlay
	}
	if err := imaging.Blend(ctx.Output[0], ctx.Input[0], over, b.Alpha()); err != nil {
		return plugin.StatusError, err
	}
	return plugin.StatusOK, nil
}
