package host

import (
	"errors"
	"fmt"
)

// Chain composes drivers linearly: the outputs of driver k are the inputs of
// driver k+1. The composition lives in the host; plugins never see each other.
type Chain struct {
	name    string
	drivers []*Driver
}

// NewChain creates an empty chain
func NewChain(name string) *Chain {
	return &Chain{
		name:    name,
		drivers: make([]*Driver, 0),
	}
}

// Name returns the chain name
func (c *Chain) Name() string {
	return c.name
}

// Add appends a driver to the chain
func (c *Chain) Add(driver *Driver) *Chain {
	c.drivers = append(c.drivers, driver)
	return c
}

// Count returns the number of drivers in the chain
func (c *Chain) Count() int {
	return len(c.drivers)
}

// IsEmpty returns true if the chain has no drivers
func (c *Chain) IsEmpty() bool {
	return len(c.drivers) == 0
}

// Drivers returns the drivers in order
func (c *Chain) Drivers() []*Driver {
	return c.drivers
}

// Feed pushes one input frame set through every driver. ok is false when any
// driver held the frame set back.
func (c *Chain) Feed(inputs []Frame) ([]Frame, bool, error) {
	return c.feedFrom(0, inputs)
}

func (c *Chain) feedFrom(start int, frames []Frame) ([]Frame, bool, error) {
	for _, d := range c.drivers[start:] {
		out, ok, err := d.Feed(frames)
		if err != nil || !ok {
			return nil, false, err
		}
		frames = out
	}
	return frames, true, nil
}

// Drain drains the drivers in order. Frame sets flushed from driver k are fed
// through drivers k+1.. before those are drained themselves; whatever leaves
// the last driver goes to emit.
func (c *Chain) Drain(emit func([]Frame) error) error {
	for k, d := range c.drivers {
		_, err := d.Drain(func(frames []Frame) error {
			out, ok, err := c.feedFrom(k+1, frames)
			if err != nil || !ok || emit == nil {
				return err
			}
			return emit(out)
		})
		if err != nil {
			return fmt.Errorf("failed to drain %s stage %d: %w", c.name, k, err)
		}
	}
	return nil
}

// Close uninitializes every stage
func (c *Chain) Close() {
	for _, d := range c.drivers {
		d.Close()
	}
}

// Validate checks that adjacent stages agree on pin counts and, once
// configured, on frame shapes
func (c *Chain) Validate() error {
	for k := 1; k < len(c.drivers); k++ {
		up := c.drivers[k-1].Stage()
		down := c.drivers[k].Stage()
		if up.Outputs() != down.Inputs() {
			return fmt.Errorf("%w: %s has %d outputs, %s has %d inputs",
				ErrConfiguration, up.Name(), up.Outputs(), down.Name(), down.Inputs())
		}

		outs, ins := up.OutputShapes(), down.InputShapes()
		if len(outs) == 0 || len(ins) == 0 {
			continue
		}
		for i := range outs {
			if !outs[i].SameShape(ins[i]) {
				return fmt.Errorf("%w: %s output %d is %s, %s input %d expects %s",
					ErrConfiguration, up.Name(), i, outs[i], down.Name(), i, ins[i])
			}
		}
	}
	return nil
}

// ChainBuilder provides a fluent API for building chains
type ChainBuilder struct {
	chain  *Chain
	errors []error
}

// NewChainBuilder creates a new chain builder
func NewChainBuilder(name string) *ChainBuilder {
	return &ChainBuilder{
		chain:  NewChain(name),
		errors: make([]error, 0),
	}
}

// WithDriver adds a driver to the chain
func (b *ChainBuilder) WithDriver(driver *Driver) *ChainBuilder {
	if driver == nil {
		b.errors = append(b.errors, fmt.Errorf("driver cannot be nil"))
		return b
	}
	b.chain.Add(driver)
	return b
}

// WithStage adds a driver for stage with the given drain limit
func (b *ChainBuilder) WithStage(stage *Stage, maxFlush int) *ChainBuilder {
	if stage == nil {
		b.errors = append(b.errors, fmt.Errorf("stage cannot be nil"))
		return b
	}
	return b.WithDriver(NewDriver(stage, maxFlush))
}

// Build validates and returns the chain
func (b *ChainBuilder) Build() (*Chain, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("chain build errors: %w", errors.Join(b.errors...))
	}
	if b.chain.IsEmpty() {
		return nil, fmt.Errorf("chain is empty")
	}
	if err := b.chain.Validate(); err != nil {
		return nil, err
	}
	return b.chain, nil
}
