package plugin

import (
	"errors"
	"fmt"

	"github.com/justyntemme/framego/pkg/frame"
)

// ErrDescriptorCount is returned when negotiation receives the wrong number of descriptors
var ErrDescriptorCount = errors.New("descriptor count does not match initialized pin count")

// DefaultShapes computes the default output shapes: output i takes input i's
// shape, or input 0's shape when there are more outputs than inputs.
func DefaultShapes(inputs []frame.Descriptor, outputs int) []frame.Descriptor {
	shapes := make([]frame.Descriptor, outputs)
	FillDefaultShapes(inputs, shapes)
	return shapes
}

// FillDefaultShapes applies the default policy in place
func FillDefaultShapes(inputs, outputs []frame.Descriptor) {
	if len(inputs) == 0 {
		return
	}
	for i := range outputs {
		if i < len(inputs) {
			outputs[i] = inputs[i]
		} else {
			outputs[i] = inputs[0]
		}
	}
}

// CheckDescriptors validates descriptor counts and input shapes
func CheckDescriptors(inputs, outputs []frame.Descriptor, wantIn, wantOut int) error {
	if len(inputs) != wantIn {
		return fmt.Errorf("%w: %d inputs, initialized with %d", ErrDescriptorCount, len(inputs), wantIn)
	}
	if len(outputs) != wantOut {
		return fmt.Errorf("%w: %d outputs, initialized with %d", ErrDescriptorCount, len(outputs), wantOut)
	}
	for i, d := range inputs {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}
