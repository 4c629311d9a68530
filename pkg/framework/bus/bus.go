// Package bus provides frame pin configuration and topology rules for plugin instances.
package bus

import (
	"errors"
	"fmt"
)

// Direction represents the pin direction
type Direction int32

const (
	// DirectionInput represents an input pin
	DirectionInput Direction = 0
	// DirectionOutput represents an output pin
	DirectionOutput Direction = 1
)

// Kind is the routing shape of an instance
type Kind int

const (
	// KindOneToOne is a single input feeding a single output
	KindOneToOne Kind = iota
	// KindManyToOne is N>1 inputs combined into one output
	KindManyToOne
	// KindOneToMany is one input fanned out to M>1 outputs
	KindOneToMany
)

// String returns the topology in N:M notation
func (k Kind) String() string {
	switch k {
	case KindOneToOne:
		return "1:1"
	case KindManyToOne:
		return "N:1"
	case KindOneToMany:
		return "1:N"
	default:
		return "unknown"
	}
}

var (
	// ErrUnsupportedTopology is returned for N:M configurations (both counts above one)
	ErrUnsupportedTopology = errors.New("unsupported topology: multi-input with multi-output")
	// ErrNoPins is returned when either side has no pins
	ErrNoPins = errors.New("topology needs at least one input and one output")
)

// Classify maps input/output counts to a topology kind. Only 1:1, N:1 and
// 1:M are legal; composing single-direction stages covers the rest.
func Classify(inputs, outputs int) (Kind, error) {
	switch {
	case inputs < 1 || outputs < 1:
		return 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrNoPins, inputs, outputs)
	case inputs > 1 && outputs > 1:
		return 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrUnsupportedTopology, inputs, outputs)
	case inputs > 1:
		return KindManyToOne, nil
	case outputs > 1:
		return KindOneToMany, nil
	default:
		return KindOneToOne, nil
	}
}

// Info describes one pin
type Info struct {
	Direction Direction
	Index     int
	Name      string
}

// Configuration holds the pins of a negotiated instance
type Configuration struct {
	inputs  []Info
	outputs []Info
	kind    Kind
}

// NewConfiguration creates a configuration with generated pin names
func NewConfiguration(inputs, outputs int) (*Configuration, error) {
	return NewBuilder().WithInputs(inputs, "in").WithOutputs(outputs, "out").Build()
}

// GetPinCount returns the number of pins in a direction
func (c *Configuration) GetPinCount(direction Direction) int {
	if direction == DirectionOutput {
		return len(c.outputs)
	}
	return len(c.inputs)
}

// GetPinInfo returns information about a specific pin
func (c *Configuration) GetPinInfo(direction Direction, index int) *Info {
	pins := c.inputs
	if direction == DirectionOutput {
		pins = c.outputs
	}
	if index < 0 || index >= len(pins) {
		return nil
	}
	return &pins[index]
}

// Kind returns the topology kind
func (c *Configuration) Kind() Kind {
	return c.kind
}

// Inputs returns the input count
func (c *Configuration) Inputs() int {
	return len(c.inputs)
}

// Outputs returns the output count
func (c *Configuration) Outputs() int {
	return len(c.outputs)
}

// String returns e.g. "2:1"
func (c *Configuration) String() string {
	return fmt.Sprintf("%d:%d", len(c.inputs), len(c.outputs))
}
