package plugin

import (
	"errors"
	"fmt"
)

// State is a position in an instance's lifecycle
type State int

const (
	// StateCreated is the state right after Descriptor.Create
	StateCreated State = iota
	// StateInitialized follows a successful Init
	StateInitialized
	// StateConfigured follows a successful Configure
	StateConfigured
	// StateRunning is entered by the first Process call
	StateRunning
	// StateDraining is entered at end of stream; only Flush and Uninit remain
	StateDraining
	// StateUninitialized is terminal
	StateUninitialized
)

var stateNames = [...]string{"created", "initialized", "configured", "running", "draining", "uninitialized"}

// String returns the state name
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Op is a host call that may move an instance between states
type Op int

const (
	OpInit Op = iota
	OpConfigure
	OpProcess
	OpEndOfStream
	OpFlush
	OpUninit
)

var opNames = [...]string{"init", "configure", "process", "end_of_stream", "flush", "uninit"}

// String returns the operation name
func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return "unknown"
	}
	return opNames[o]
}

// ErrInvalidTransition is returned when an operation is not legal in the current state
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// transitions lists, per operation, the states it may be issued from and the
// state it leads to
var transitions = map[Op]struct {
	from []State
	to   State
}{
	OpInit:        {from: []State{StateCreated}, to: StateInitialized},
	OpConfigure:   {from: []State{StateInitialized}, to: StateConfigured},
	OpProcess:     {from: []State{StateConfigured, StateRunning}, to: StateRunning},
	OpEndOfStream: {from: []State{StateConfigured, StateRunning}, to: StateDraining},
	OpFlush:       {from: []State{StateDraining}, to: StateDraining},
	OpUninit: {
		from: []State{StateCreated, StateInitialized, StateConfigured, StateRunning, StateDraining},
		to:   StateUninitialized,
	},
}

// Next returns the state op leads to from s, or ErrInvalidTransition
func Next(s State, op Op) (State, error) {
	t, ok := transitions[op]
	if !ok {
		return s, fmt.Errorf("%w: unknown operation %d", ErrInvalidTransition, op)
	}
	for _, from := range t.from {
		if from == s {
			return t.to, nil
		}
	}
	return s, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, op, s)
}
