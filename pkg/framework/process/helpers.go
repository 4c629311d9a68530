package process

import "github.com/justyntemme/framego/pkg/frame"

// ProcessOutputs calls fn for every output slot, stopping at the first error
func (c *Context) ProcessOutputs(fn func(i int, out *frame.Buffer) error) error {
	for i, out := range c.Output {
		if err := fn(i, out); err != nil {
			return err
		}
	}
	return nil
}

// ProcessRows calls fn with matching rows of input in and output out.
// Both buffers must share a height.
func (c *Context) ProcessRows(in, out int, fn func(y int, src, dst []byte)) {
	src := c.Input[in]
	dst := c.Output[out]
	h := dst.Descriptor().Height
	if sh := src.Descriptor().Height; sh < h {
		h = sh
	}
	for y := 0; y < h; y++ {
		fn(y, src.Row(y), dst.Row(y))
	}
}
