package plugin

import (
	"errors"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/bus"
	"github.com/justyntemme/framego/pkg/framework/param"
	"github.com/justyntemme/framego/pkg/framework/process"
)

// ErrNotInitialized is returned when Configure runs before Init succeeded
var ErrNotInitialized = errors.New("plugin not initialized")

// Base provides the common parts of a plugin instance: topology checking,
// parameter parsing, default negotiation and a stateless Flush. Plugins embed
// it and implement Process themselves.
type Base struct {
	params      *param.Registry
	requirement bus.Requirement
	config      *bus.Configuration
	inputs      []frame.Descriptor
	outputs     []frame.Descriptor
	report      param.Report

	// Optional callbacks for customization
	onInit      func() error
	onConfigure func(inputs, outputs []frame.Descriptor) error
	onUninit    func()
}

// NewBase creates a base accepting the given pin counts
func NewBase(requirement bus.Requirement) *Base {
	return &Base{
		params:      param.NewRegistry(),
		requirement: requirement,
	}
}

// Init checks the requested topology and applies the parameter string.
// Parameter problems never fail Init; they are clamped and recorded.
func (b *Base) Init(params string, inputs, outputs int) error {
	if err := b.requirement.Check(inputs, outputs); err != nil {
		return err
	}
	config, err := bus.NewConfiguration(inputs, outputs)
	if err != nil {
		return err
	}

	b.report = b.params.Apply(params)
	b.config = config

	if b.onInit != nil {
		return b.onInit()
	}
	return nil
}

// Configure validates descriptor counts and keeps the host-filled default
// output shapes unless an OnConfigure callback changes them.
func (b *Base) Configure(inputs, outputs []frame.Descriptor) error {
	if b.config == nil {
		return ErrNotInitialized
	}
	if err := CheckDescriptors(inputs, outputs, b.config.Inputs(), b.config.Outputs()); err != nil {
		return err
	}

	if b.onConfigure != nil {
		if err := b.onConfigure(inputs, outputs); err != nil {
			return err
		}
	}

	b.inputs = append([]frame.Descriptor(nil), inputs...)
	b.outputs = append([]frame.Descriptor(nil), outputs...)
	return nil
}

// Flush reports nothing left; stateless plugins need nothing more
func (b *Base) Flush(ctx *process.Context) (bool, error) {
	return false, nil
}

// Uninit runs the OnUninit callback and forgets the negotiation
func (b *Base) Uninit() {
	if b.onUninit != nil {
		b.onUninit()
	}
	b.config = nil
	b.inputs = nil
	b.outputs = nil
}

// Parameters returns the parameter registry for adding parameters
func (b *Base) Parameters() *param.Registry {
	return b.params
}

// ParamReport returns what Init did with the parameter string
func (b *Base) ParamReport() param.Report {
	return b.report
}

// Config returns the initialized pin configuration, nil before Init
func (b *Base) Config() *bus.Configuration {
	return b.config
}

// InputShapes returns the negotiated input descriptors
func (b *Base) InputShapes() []frame.Descriptor {
	return b.inputs
}

// OutputShapes returns the negotiated output descriptors
func (b *Base) OutputShapes() []frame.Descriptor {
	return b.outputs
}

// Validate runs the structural checks for a Process call
func (b *Base) Validate(ctx *process.Context) error {
	if b.config == nil {
		return ErrNotInitialized
	}
	return ctx.Validate(b.config.Inputs(), b.config.Outputs())
}

// OnInit sets a callback run after the topology and parameters are accepted
func (b *Base) OnInit(fn func() error) {
	b.onInit = fn
}

// OnConfigure sets a callback allowed to override output shapes
func (b *Base) OnConfigure(fn func(inputs, outputs []frame.Descriptor) error) {
	b.onConfigure = fn
}

// OnUninit sets a callback for releasing plugin state
func (b *Base) OnUninit(fn func()) {
	b.onUninit = fn
}
