// Package param provides clamped plugin parameters parsed from flat key=value strings.
package param

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Kind selects how a parameter value is stored and formatted
type Kind int

const (
	// KindFloat holds a real value
	KindFloat Kind = iota
	// KindInt holds an integer value; parsed values are truncated toward zero
	KindInt
)

// Parameter represents a plugin parameter
type Parameter struct {
	Name         string
	Kind         Kind
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64

	// Odd forces integer values to the next odd number (kernel sizes)
	Odd bool

	// Atomic value so hosts can read parameters while a call is running
	value uint64
}

// GetValue returns the current value
func (p *Parameter) GetValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&p.value))
}

// Int returns the current value as an integer
func (p *Parameter) Int() int {
	return int(p.GetValue())
}

// SetValue stores value after constraining it, and reports whether the stored
// value differs from what was asked for.
func (p *Parameter) SetValue(value float64) bool {
	constrained := p.Constrain(value)
	atomic.StoreUint64(&p.value, math.Float64bits(constrained))
	return constrained != value
}

// Reset restores the default value
func (p *Parameter) Reset() {
	p.SetValue(p.DefaultValue)
}

// Constrain maps any value to the nearest valid value
func (p *Parameter) Constrain(value float64) float64 {
	if math.IsNaN(value) {
		return p.DefaultValue
	}
	if p.Kind == KindInt {
		value = math.Trunc(value)
		if p.Odd && math.Mod(value, 2) == 0 {
			value++
		}
	}
	if value < p.Min {
		value = p.Min
	} else if value > p.Max {
		value = p.Max
	}
	if p.Kind == KindInt && p.Odd && math.Mod(value, 2) == 0 {
		// only reachable when a bound is even
		if value+1 <= p.Max {
			value++
		} else {
			value--
		}
	}
	return value
}

// FormatValue returns the value as it would appear in a parameter string
func (p *Parameter) FormatValue() string {
	if p.Kind == KindInt {
		return fmt.Sprintf("%d", p.Int())
	}
	return fmt.Sprintf("%g", p.GetValue())
}

// String returns name=value
func (p *Parameter) String() string {
	return p.Name + "=" + p.FormatValue()
}
