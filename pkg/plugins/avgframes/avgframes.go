// Package avgframes provides a temporal averaging plugin.
package avgframes

import (
	"fmt"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/bus"
	"github.com/justyntemme/framego/pkg/framework/param"
	fwplugin "github.com/justyntemme/framego/pkg/framework/plugin"
	"github.com/justyntemme/framego/pkg/framework/process"
	"github.com/justyntemme/framego/pkg/framework/queue"
	"github.com/justyntemme/framego/pkg/imaging"
	"github.com/justyntemme/framego/pkg/loader"
	"github.com/justyntemme/framego/pkg/plugin"
)

const (
	// DefaultFrames is the window length used when none is given
	DefaultFrames = 3
	// MaxFrames bounds the window length
	MaxFrames = 16
)

// GetDescriptor is the plugin's registration entry point
var GetDescriptor = plugin.Entry(fwplugin.Info{
	Name:        "avgframes",
	Description: "Temporal frame averaging",
	Version:     "1.0.0",
	Vendor:      "framego",
}, func() plugin.Instance { return New() })

func init() {
	loader.MustRegister(GetDescriptor)
}

// AvgFrames outputs the mean of the last K input frames. The first K-1
// calls answer StatusTryAgain; at end of stream each remaining frame yields
// one more output averaged over a window that shrinks by one per flush.
// Parameters:
//
//	frames  window length K, 1..16 (default 3)
type AvgFrames struct {
	*fwplugin.Base
	frames *param.Parameter
	window *queue.FrameQueue
}

// New creates an averaging instance
func New() *AvgFrames {
	a := &AvgFrames{
		Base: fwplugin.NewBase(bus.Exactly(1, 1)),
		frames: param.Int("frames").
			Range(1, MaxFrames).
			Default(DefaultFrames).
			Build(),
	}
	a.Parameters().Add(a.frames)

	a.OnInit(func() error {
		a.window = queue.New(a.Window())
		return nil
	})
	a.OnUninit(func() {
		if a.window != nil {
			a.window.Clear()
		}
	})
	return a
}

// Window returns the configured window length
func (a *AvgFrames) Window() int {
	return a.frames.Int()
}

// Retained returns the number of frames currently held
func (a *AvgFrames) Retained() int {
	if a.window == nil {
		return 0
	}
	return a.window.Len()
}

// Process retains a copy of input 0 and emits the window mean once the
// window is full
func (a *AvgFrames) Process(ctx *process.Context) (plugin.Status, error) {
	if err := a.Validate(ctx); err != nil {
		return plugin.StatusError, err
	}
	if err := a.window.Retain(ctx.Input[0]); err != nil {
		return plugin.StatusError, fmt.Errorf("failed to retain frame: %w", err)
	}
	if a.window.Len() < a.Window() {
		return plugin.StatusTryAgain, nil
	}
	if err := a.emit(ctx.Output[0]); err != nil {
		return plugin.StatusError, err
	}
	return plugin.StatusOK, nil
}

// Flush emits the mean of the retained frames and drops the oldest
func (a *AvgFrames) Flush(ctx *process.Context) (bool, error) {
	if a.Retained() == 0 {
		return false, nil
	}
	if err := ctx.ValidateOutputs(1); err != nil {
		return false, err
	}
	if err := a.emit(ctx.Output[0]); err != nil {
		return false, err
	}
	return true, nil
}

func (a *AvgFrames) emit(out *frame.Buffer) error {
	frames := make([]*frame.Buffer, 0, a.window.Len())
	a.window.Each(func(_ int, b *frame.Buffer) {
		frames = append(frames, b)
	})
	if err := imaging.Average(out, frames); err != nil {
		return err
	}
	a.window.Drop()
	return nil
}
