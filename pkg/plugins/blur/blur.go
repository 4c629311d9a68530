// Package blur provides a Gaussian blur plugin.
package blur

import (
	"github.com/justyntemme/framego/pkg/framework/bus"
	"github.com/justyntemme/framego/pkg/framework/param"
	fwplugin "github.com/justyntemme/framego/pkg/framework/plugin"
	"github.com/justyntemme/framego/pkg/framework/process"
	"github.com/justyntemme/framego/pkg/imaging"
	"github.com/justyntemme/framego/pkg/loader"
	"github.com/justyntemme/framego/pkg/plugin"
)

const (
	// DefaultKernelSize is the ksize used when none is given
	DefaultKernelSize = 5
	// MaxKernelSize bounds ksize
	MaxKernelSize = 51
)

// GetDescriptor is the plugin's registration entry point
var GetDescriptor = plugin.Entry(fwplugin.Info{
	Name:        "blur",
	Description: "Gaussian blur effect",
	Version:     "1.0.0",
	Vendor:      "framego",
}, func() plugin.Instance { return New() })

func init() {
	loader.MustRegister(GetDescriptor)
}

// Blur blurs one stream with an odd-sized Gaussian kernel. Parameters:
//
//	ksize  kernel size, 1..51, even values round up (default 5)
type Blur struct {
	*fwplugin.Base
	ksize *param.Parameter
}

// New creates a blur instance
func New() *Blur {
	b := &Blur{
		Base: fwplugin.NewBase(bus.Exactly(1, 1)),
		ksize: param.Int("ksize").
			Range(1, MaxKernelSize).
			Default(DefaultKernelSize).
			Unit("px").
			Odd().
			Build(),
	}
	b.Parameters().Add(b.ksize)
	return b
}

// KernelSize returns the effective kernel size
func (b *Blur) KernelSize() int {
	return b.ksize.Int()
}

// Process blurs input 0 into output 0
func (b *Blur) Process(ctx *process.Context) (plugin.Status, error) {
	if err := b.Validate(ctx); err != nil {
		return plugin.StatusError, err
	}
	if err := imaging.GaussianBlur(ctx.Output[0], ctx.Input[0], b.KernelSize()); err != nil {
		return plugin.StatusError, err
	}
	return plugin.StatusOK, nil
}
