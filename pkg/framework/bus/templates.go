package bus

import "fmt"

// Common pin configuration templates

// NewFilter creates a single input, single output configuration
func NewFilter() *Configuration {
	return NewBuilder().
		WithInput("In").
		WithOutput("Out").
		MustBuild()
}

// NewBlend creates a two input compositing configuration
// Main: the base picture, Overlay: the picture mixed on top
func NewBlend() *Configuration {
	return NewBuilder().
		WithInput("Main").
		WithInput("Overlay").
		WithOutput("Out").
		MustBuild()
}

// NewMerge creates an n input, single output configuration
func NewMerge(n int) *Configuration {
	return NewBuilder().
		WithInputs(n, "In ").
		WithOutput("Out").
		MustBuild()
}

// NewSplit creates a single input, m output configuration
func NewSplit(m int) *Configuration {
	return NewBuilder().
		WithInput("In").
		WithOutputs(m, "Out ").
		MustBuild()
}

// Requirement is the set of pin counts a plugin accepts at initialization.
type Requirement struct {
	MinInputs  int
	MaxInputs  int
	MinOutputs int
	MaxOutputs int
}

// Exactly accepts one fixed topology
func Exactly(inputs, outputs int) Requirement {
	return Requirement{MinInputs: inputs, MaxInputs: inputs, MinOutputs: outputs, MaxOutputs: outputs}
}

// Check validates counts against the requirement and the topology rules.
func (r Requirement) Check(inputs, outputs int) error {
	if _, err := Classify(inputs, outputs); err != nil {
		return err
	}
	if inputs < r.MinInputs || inputs > r.MaxInputs {
		return fmt.Errorf("input count %d outside supported range %d..%d", inputs, r.MinInputs, r.MaxInputs)
	}
	if outputs < r.MinOutputs || outputs > r.MaxOutputs {
		return fmt.Errorf("output count %d outside supported range %d..%d", outputs, r.MinOutputs, r.MaxOutputs)
	}
	return nil
}

// String returns e.g. "1:1..4"
func (r Requirement) String() string {
	return fmt.Sprintf("%s:%s", span(r.MinInputs, r.MaxInputs), span(r.MinOutputs, r.MaxOutputs))
}

func span(lo, hi int) string {
	if lo == hi {
		return fmt.Sprintf("%d", lo)
	}
	return fmt.Sprintf("%d..%d", lo, hi)
}
