// Package process provides the per-call context handed to plugin Process and Flush.
package process

import (
	"errors"
	"fmt"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/param"
)

var (
	// ErrInputCount is returned when a call carries the wrong number of inputs
	ErrInputCount = errors.New("input count does not match negotiation")
	// ErrOutputCount is returned when a call carries the wrong number of outputs
	ErrOutputCount = errors.New("output count does not match negotiation")
	// ErrNilBuffer is returned when a slot holds no usable buffer
	ErrNilBuffer = errors.New("missing frame buffer")
)

// Context carries the buffers of one Process or Flush call.
//
// Input handles are borrowed for the call only. Output handles are
// host-allocated and pre-sized; write into them or Alias them to an input.
type Context struct {
	Input  []*frame.Buffer
	Output []*frame.Buffer

	// Sequence is the host's index of the current input set, starting at 0.
	// During flush it is the number of input sets fed so far.
	Sequence uint64

	// Draining is true for Flush calls
	Draining bool

	params *param.Registry
}

// NewContext creates a context bound to a parameter registry (may be nil)
func NewContext(params *param.Registry) *Context {
	return &Context{params: params}
}

// Reset clears the buffers between calls so no handle leaks into the next one
func (c *Context) Reset() {
	for i := range c.Input {
		c.Input[i] = nil
	}
	for i := range c.Output {
		c.Output[i] = nil
	}
	c.Input = c.Input[:0]
	c.Output = c.Output[:0]
	c.Draining = false
}

// Param returns the current value of a parameter, 0 if unknown
func (c *Context) Param(name string) float64 {
	if c.params == nil {
		return 0
	}
	if p := c.params.Get(name); p != nil {
		return p.GetValue()
	}
	return 0
}

// NumInputs returns the number of input buffers
func (c *Context) NumInputs() int {
	return len(c.Input)
}

// NumOutputs returns the number of output buffers
func (c *Context) NumOutputs() int {
	return len(c.Output)
}

// Validate performs the structural checks every Process call must pass.
func (c *Context) Validate(inputs, outputs int) error {
	if len(c.Input) != inputs {
		return fmt.Errorf("%w: got %d, want %d", ErrInputCount, len(c.Input), inputs)
	}
	if len(c.Output) != outputs {
		return fmt.Errorf("%w: got %d, want %d", ErrOutputCount, len(c.Output), outputs)
	}
	for i, b := range c.Input {
		if !b.Valid() {
			return fmt.Errorf("%w: input %d", ErrNilBuffer, i)
		}
	}
	return c.ValidateOutputs(outputs)
}

// ValidateOutputs checks only the output side, as used by Flush
func (c *Context) ValidateOutputs(outputs int) error {
	if len(c.Output) != outputs {
		return fmt.Errorf("%w: got %d, want %d", ErrOutputCount, len(c.Output), outputs)
	}
	for i, b := range c.Output {
		if !b.Valid() {
			return fmt.Errorf("%w: output %d", ErrNilBuffer, i)
		}
	}
	return nil
}

// PassThrough aliases output out to input in without copying
func (c *Context) PassThrough(in, out int) error {
	return c.Output[out].Alias(c.Input[in])
}

// CopyThrough copies input in into output out's memory
func (c *Context) CopyThrough(in, out int) error {
	return c.Output[out].CopyFrom(c.Input[in])
}
