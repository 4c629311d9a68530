package host

import "errors"

var (
	// ErrConfiguration marks a failed Init or Configure. It is terminal for the stage.
	ErrConfiguration = errors.New("configuration error")
	// ErrProcessing marks a failed Process or Flush call
	ErrProcessing = errors.New("processing error")
	// ErrInvalidState is returned for calls the stage's lifecycle does not allow
	ErrInvalidState = errors.New("invalid stage state")
	// ErrOutputReplaced is returned when a plugin swapped an output handle or
	// aliased it to something other than an input of the same call
	ErrOutputReplaced = errors.New("plugin replaced a host-allocated output")
	// ErrPluginPanic wraps a panic recovered from plugin code
	ErrPluginPanic = errors.New("plugin panicked")
	// ErrDrainDiverged is returned when Flush keeps producing past the drain limit
	ErrDrainDiverged = errors.New("flush did not report end of data")
	// ErrFrameSize is returned when a host frame does not match its descriptor
	ErrFrameSize = errors.New("frame size does not match descriptor")
)
