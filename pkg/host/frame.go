package host

import (
	"fmt"

	"github.com/justyntemme/framego/pkg/frame"
)

// Frame is host-owned pixel memory plus its shape. Frames returned by a
// Driver belong to the caller; those produced by pass-through share memory
// with the frame that was fed in.
type Frame struct {
	Descriptor frame.Descriptor
	Pix        []byte
}

// NewFrame allocates a zeroed frame
func NewFrame(desc frame.Descriptor) Frame {
	return Frame{Descriptor: desc, Pix: make([]byte, desc.Size())}
}

// Validate checks the frame's memory against its descriptor
func (f Frame) Validate() error {
	if err := f.Descriptor.Validate(); err != nil {
		return err
	}
	if len(f.Pix) != f.Descriptor.Size() {
		return fmt.Errorf("%w: %s has %d bytes, want %d", ErrFrameSize, f.Descriptor, len(f.Pix), f.Descriptor.Size())
	}
	return nil
}

// SharesMemory reports whether two frames are backed by the same pixel array
func (f Frame) SharesMemory(other Frame) bool {
	if len(f.Pix) == 0 || len(other.Pix) == 0 {
		return false
	}
	return &f.Pix[0] == &other.Pix[0]
}
