package bus

import (
	"fmt"
)

// Builder provides a fluent API for building pin configurations
type Builder struct {
	config *Configuration
	errors []error
}

// NewBuilder creates a new pin configuration builder
func NewBuilder() *Builder {
	return &Builder{
		config: &Configuration{
			inputs:  []Info{},
			outputs: []Info{},
		},
		errors: []error{},
	}
}

// WithInput adds a named input pin
func (b *Builder) WithInput(name string) *Builder {
	b.config.inputs = append(b.config.inputs, Info{
		Direction: DirectionInput,
		Index:     len(b.config.inputs),
		Name:      name,
	})
	return b
}

// WithOutput adds a named output pin
func (b *Builder) WithOutput(name string) *Builder {
	b.config.outputs = append(b.config.outputs, Info{
		Direction: DirectionOutput,
		Index:     len(b.config.outputs),
		Name:      name,
	})
	return b
}

// WithInputs adds n input pins named prefix0..prefixN-1
func (b *Builder) WithInputs(n int, prefix string) *Builder {
	if n < 0 {
		b.errors = append(b.errors, fmt.Errorf("negative input count %d", n))
		return b
	}
	for i := 0; i < n; i++ {
		b.WithInput(fmt.Sprintf("%s%d", prefix, i))
	}
	return b
}

// WithOutputs adds n output pins named prefix0..prefixN-1
func (b *Builder) WithOutputs(n int, prefix string) *Builder {
	if n < 0 {
		b.errors = append(b.errors, fmt.Errorf("negative output count %d", n))
		return b
	}
	for i := 0; i < n; i++ {
		b.WithOutput(fmt.Sprintf("%s%d", prefix, i))
	}
	return b
}

// Validate checks if the configuration is valid
func (b *Builder) Validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("builder errors: %v", b.errors)
	}

	kind, err := Classify(len(b.config.inputs), len(b.config.outputs))
	if err != nil {
		return err
	}
	b.config.kind = kind
	return nil
}

// Build returns the built configuration or an error
func (b *Builder) Build() (*Configuration, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// MustBuild returns the built configuration or panics on error
func (b *Builder) MustBuild() *Configuration {
	config, err := b.Build()
	if err != nil {
		panic(err)
	}
	return config
}
