// Package plugin defines the contract between a frame-processing host and
// dynamically loaded frame-transform plugins.
//
// A loadable unit exports one symbol, GetDescriptor, returning its
// process-wide Descriptor. The host checks the API version, creates an
// Instance and drives it through
//
//	Init -> Configure -> Process* -> Flush* -> Uninit
//
// one call at a time. Process may answer StatusTryAgain to consume input
// without producing output; Flush drains whatever was held back, one frame
// set per call, until it reports nothing left.
package plugin

import (
	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/param"
	fwplugin "github.com/justyntemme/framego/pkg/framework/plugin"
	"github.com/justyntemme/framego/pkg/framework/process"
)

// APIVersion is the contract version a Descriptor must carry
const APIVersion = 1

// DescriptorSymbol is the symbol a loadable unit exports. Its type must be
// func() *Descriptor.
const DescriptorSymbol = "GetDescriptor"

// Status is the outcome of a Process call
type Status int

const (
	// StatusOK means every output slot holds a complete frame
	StatusOK Status = 0
	// StatusTryAgain means the input was accepted and nothing was produced yet.
	// It is not an error.
	StatusTryAgain Status = 1
	// StatusError means the call was invalid or the transform failed; outputs
	// are undefined
	StatusError Status = -1
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTryAgain:
		return "try_again"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Instance is one stateful execution of a transform.
//
// Calls on one Instance never overlap. Input buffers are borrowed for the
// duration of the call; retaining pixels requires Buffer.Clone. Output
// buffers are pre-allocated by the host and may only be written into or
// aliased to an input of identical shape.
type Instance interface {
	// Init accepts an optional key=value parameter string and the pin counts.
	// It fails if the instance cannot support the counts.
	Init(params string, inputs, outputs int) error

	// Configure receives one descriptor per input and one per output. Outputs
	// arrive pre-filled with the default policy and may be overridden.
	Configure(inputs []frame.Descriptor, outputs []frame.Descriptor) error

	// Process handles one input frame set
	Process(ctx *process.Context) (Status, error)

	// Flush writes at most one held-back frame set and reports whether it did
	Flush(ctx *process.Context) (bool, error)

	// Uninit releases all internal buffering
	Uninit()
}

// Parameterized is implemented by instances that expose their parameter
// registry. The host binds it to the call context, so Context.Param reads
// the values applied at Init.
type Parameterized interface {
	Parameters() *param.Registry
}

// DefaultShapes returns the output descriptors a host passes to Configure:
// output i takes input i's shape, or input 0's when i >= len(inputs).
func DefaultShapes(inputs []frame.Descriptor, outputs int) []frame.Descriptor {
	return fwplugin.DefaultShapes(inputs, outputs)
}
