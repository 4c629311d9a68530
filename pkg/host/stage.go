// Package host drives plugin instances on behalf of a media pipeline.
//
// A Stage wraps one instance and enforces the contract around it: lifecycle
// order, topology, default shape negotiation, buffer borrowing and
// revocation, output guards and panic recovery. A Driver runs the feed and
// drain loop over a Stage; a Chain composes Drivers linearly.
package host

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/bus"
	"github.com/justyntemme/framego/pkg/framework/debug"
	"github.com/justyntemme/framego/pkg/framework/process"
	"github.com/justyntemme/framego/pkg/plugin"
)

// ErrorPolicy decides what happens to a stage after a processing error
type ErrorPolicy int

const (
	// PolicyDisable refuses every further call except Uninit
	PolicyDisable ErrorPolicy = iota
	// PolicyDropFrameSet drops the failing frame set and keeps the stage running
	PolicyDropFrameSet
)

// String returns the policy name as used in pipeline files
func (p ErrorPolicy) String() string {
	if p == PolicyDropFrameSet {
		return "drop"
	}
	return "disable"
}

// ParsePolicy parses "disable" or "drop". An empty string selects PolicyDisable.
func ParsePolicy(name string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "disable":
		return PolicyDisable, nil
	case "drop", "drop_frame_set":
		return PolicyDropFrameSet, nil
	default:
		return PolicyDisable, fmt.Errorf("unknown error policy %q", name)
	}
}

// Option configures a Stage
type Option func(*Stage)

// WithLogger sets the stage logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stage) { s.logger = logger }
}

// WithMetrics sets the metrics the stage records into
func WithMetrics(metrics *Metrics) Option {
	return func(s *Stage) { s.metrics = metrics }
}

// WithAllocator sets the allocator for output buffers
func WithAllocator(alloc Allocator) Option {
	return func(s *Stage) { s.alloc = alloc }
}

// WithPolicy sets the processing error policy
func WithPolicy(policy ErrorPolicy) Option {
	return func(s *Stage) { s.policy = policy }
}

// WithProfiler records call timings into p
func WithProfiler(p *debug.Profiler) Option {
	return func(s *Stage) { s.profiler = p }
}

// WithName overrides the stage name, which defaults to the plugin name
func WithName(name string) Option {
	return func(s *Stage) { s.name = name }
}

// Stage owns one plugin instance and is the only path through which the
// host calls it. Calls are serialized.
type Stage struct {
	id       uuid.UUID
	name     string
	desc     *plugin.Descriptor
	inst     plugin.Instance
	logger   *zap.Logger
	metrics  *Metrics
	profiler *debug.Profiler
	alloc    Allocator
	policy   ErrorPolicy

	mu        sync.Mutex
	state     plugin.State
	failed    bool
	inputs    int
	outputs   int
	inShapes  []frame.Descriptor
	outShapes []frame.Descriptor
	ctx       *process.Context
	seq       uint64
}

// NewStage validates desc and creates an instance through it
func NewStage(desc *plugin.Descriptor, opts ...Option) (*Stage, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	s := &Stage{
		id:     uuid.New(),
		name:   desc.Name,
		desc:   desc,
		alloc:  HeapAllocator{},
		state:  plugin.StateCreated,
		ctx:    process.NewContext(nil),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = debug.OrNop(s.logger).Named("stage").With(
		zap.String("plugin", s.name),
		zap.String("stage_id", s.id.String()),
	)

	err := s.guard("create", func() error {
		s.inst = desc.Create()
		if s.inst == nil {
			return errors.New("create returned no instance")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %w", ErrConfiguration, s.name, err)
	}
	if p, ok := s.inst.(plugin.Parameterized); ok {
		s.ctx = process.NewContext(p.Parameters())
	}

	s.logger.Debug("instance created", zap.String("version", desc.Version))
	return s, nil
}

// ID returns the stage's unique identifier
func (s *Stage) ID() uuid.UUID {
	return s.id
}

// Name returns the stage name
func (s *Stage) Name() string {
	return s.name
}

// Descriptor returns the descriptor the instance was created from
func (s *Stage) Descriptor() *plugin.Descriptor {
	return s.desc
}

// Policy returns the stage's error policy
func (s *Stage) Policy() ErrorPolicy {
	return s.policy
}

// State returns the current lifecycle state
func (s *Stage) State() plugin.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failed reports whether the stage refuses further calls
func (s *Stage) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Inputs returns the initialized input count
func (s *Stage) Inputs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs
}

// Outputs returns the initialized output count
func (s *Stage) Outputs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputs
}

// InputShapes returns the negotiated input descriptors
func (s *Stage) InputShapes() []frame.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame.Descriptor(nil), s.inShapes...)
}

// OutputShapes returns the negotiated output descriptors
func (s *Stage) OutputShapes() []frame.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame.Descriptor(nil), s.outShapes...)
}

// Init passes the parameter string and pin counts to the instance. N:M and
// zero counts are refused before the plugin is called. Any failure leaves the
// stage unusable except for Uninit.
func (s *Stage) Init(params string, inputs, outputs int) error {
	s.lock()
	defer s.mu.Unlock()

	next, err := s.check(plugin.OpInit)
	if err != nil {
		return err
	}

	if _, err := bus.Classify(inputs, outputs); err != nil {
		s.failed = true
		s.metrics.RecordError(s.name, "configuration")
		s.logger.Warn("topology rejected", zap.Int("inputs", inputs), zap.Int("outputs", outputs), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrConfiguration, s.name, err)
	}

	err = s.call(plugin.OpInit, func() error {
		return s.inst.Init(params, inputs, outputs)
	})
	if err != nil {
		s.failed = true
		s.metrics.RecordError(s.name, "configuration")
		s.logger.Warn("init failed", zap.Error(err))
		return fmt.Errorf("%w: failed to initialize %s: %w", ErrConfiguration, s.name, err)
	}

	s.inputs = inputs
	s.outputs = outputs
	s.state = next
	s.logger.Debug("initialized",
		zap.String("params", params),
		zap.Int("inputs", inputs),
		zap.Int("outputs", outputs))
	return nil
}

// Configure negotiates frame shapes. The output descriptors handed to the
// plugin are pre-filled with the default policy; the negotiated result is
// returned.
func (s *Stage) Configure(inputs []frame.Descriptor) ([]frame.Descriptor, error) {
	s.lock()
	defer s.mu.Unlock()

	next, err := s.check(plugin.OpConfigure)
	if err != nil {
		return nil, err
	}

	in := append([]frame.Descriptor(nil), inputs...)
	out := plugin.DefaultShapes(in, s.outputs)

	if len(in) != s.inputs {
		err = fmt.Errorf("%w: %d inputs, initialized with %d", plugin.ErrDescriptorCount, len(in), s.inputs)
	} else {
		err = checkShapes("input", in)
	}
	if err == nil {
		err = s.call(plugin.OpConfigure, func() error {
			return s.inst.Configure(in, out)
		})
	}
	if err == nil {
		err = checkShapes("output", out)
	}
	if err != nil {
		s.failed = true
		s.metrics.RecordError(s.name, "configuration")
		s.logger.Warn("configure failed", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to configure %s: %w", ErrConfiguration, s.name, err)
	}

	s.inShapes = append([]frame.Descriptor(nil), inputs...)
	s.outShapes = out
	s.state = next
	s.logger.Debug("configured",
		zap.Stringers("inputs", s.inShapes),
		zap.Stringers("outputs", s.outShapes))
	return append([]frame.Descriptor(nil), out...), nil
}

// Process hands one input frame set to the instance. On StatusOK it returns
// one frame per output; on StatusTryAgain it returns none. Outputs the plugin
// aliased to an input share that input's memory.
func (s *Stage) Process(inputs []Frame) ([]Frame, plugin.Status, error) {
	s.lock()
	defer s.mu.Unlock()

	next, err := s.check(plugin.OpProcess)
	if err != nil {
		return nil, plugin.StatusError, err
	}
	if err := s.checkInputs(inputs); err != nil {
		return nil, plugin.StatusError, fmt.Errorf("%w: %s: %w", ErrProcessing, s.name, err)
	}

	in := make([]*frame.Buffer, len(inputs))
	for i, f := range inputs {
		if in[i], err = frame.Borrow(f.Descriptor, f.Pix); err != nil {
			return nil, plugin.StatusError, fmt.Errorf("%w: %s: input %d: %w", ErrProcessing, s.name, i, err)
		}
	}
	out, pix, err := s.allocateOutputs()
	if err != nil {
		for _, b := range in {
			b.Revoke()
		}
		return nil, plugin.StatusError, err
	}

	s.ctx.Input = append(s.ctx.Input, in...)
	s.ctx.Output = append(s.ctx.Output, out...)
	s.ctx.Sequence = s.seq

	var status plugin.Status
	err = s.call(plugin.OpProcess, func() error {
		var perr error
		status, perr = s.inst.Process(s.ctx)
		return perr
	})
	if err == nil {
		err = checkStatus(status)
	}

	keep := err == nil && status == plugin.StatusOK
	frames, verr := s.settle(in, out, pix, keep)
	if err == nil {
		err = verr
	}

	s.seq++
	s.state = next
	if err != nil {
		return nil, plugin.StatusError, s.fail(plugin.OpProcess, err)
	}
	return frames, status, nil
}

// EndOfStream tells the stage no more input will arrive. Only Flush and
// Uninit are legal afterwards.
func (s *Stage) EndOfStream() error {
	s.lock()
	defer s.mu.Unlock()

	next, err := s.check(plugin.OpEndOfStream)
	if err != nil {
		return err
	}
	s.state = next
	s.logger.Debug("end of stream", zap.Uint64("frame_sets", s.seq))
	return nil
}

// Flush asks for one held-back frame set. The boolean is false once the
// instance has nothing left.
func (s *Stage) Flush() ([]Frame, bool, error) {
	s.lock()
	defer s.mu.Unlock()

	if _, err := s.check(plugin.OpFlush); err != nil {
		return nil, false, err
	}

	out, pix, err := s.allocateOutputs()
	if err != nil {
		return nil, false, err
	}
	s.ctx.Output = append(s.ctx.Output, out...)
	s.ctx.Sequence = s.seq
	s.ctx.Draining = true

	var produced bool
	err = s.call(plugin.OpFlush, func() error {
		var ferr error
		produced, ferr = s.inst.Flush(s.ctx)
		return ferr
	})

	frames, verr := s.settle(nil, out, pix, err == nil && produced)
	if err == nil {
		err = verr
	}
	if err != nil {
		return nil, false, s.fail(plugin.OpFlush, err)
	}
	if produced {
		s.metrics.RecordFlushed(s.name)
	}
	return frames, produced, nil
}

// Uninit releases the instance through the descriptor's Destroy. It is safe
// to call more than once; the plugin only sees the first call.
func (s *Stage) Uninit() {
	s.lock()
	defer s.mu.Unlock()

	next, err := s.check(plugin.OpUninit)
	if err != nil {
		return
	}

	if err := s.call(plugin.OpUninit, func() error {
		s.inst.Uninit()
		return nil
	}); err != nil {
		s.logger.Error("uninit failed", zap.Error(err))
	}
	if err := s.guard("destroy", func() error {
		s.desc.Destroy(s.inst)
		return nil
	}); err != nil {
		s.logger.Error("destroy failed", zap.Error(err))
	}

	s.inst = nil
	s.state = next
	s.logger.Debug("uninitialized", zap.Uint64("frame_sets", s.seq))
}

// lock serializes calls, recording callers that found the instance busy
func (s *Stage) lock() {
	if s.mu.TryLock() {
		return
	}
	s.metrics.RecordOverlap(s.name)
	s.logger.Debug("call waiting for busy instance")
	s.mu.Lock()
}

func (s *Stage) check(op plugin.Op) (plugin.State, error) {
	if s.failed && op != plugin.OpUninit {
		return s.state, fmt.Errorf("%w: %s is disabled after an error", ErrInvalidState, s.name)
	}
	next, err := plugin.Next(s.state, op)
	if err != nil {
		return s.state, fmt.Errorf("%w: %s: %w", ErrInvalidState, s.name, err)
	}
	return next, nil
}

func (s *Stage) checkInputs(inputs []Frame) error {
	if len(inputs) != s.inputs {
		return fmt.Errorf("%w: got %d, want %d", process.ErrInputCount, len(inputs), s.inputs)
	}
	for i, f := range inputs {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if !f.Descriptor.SameShape(s.inShapes[i]) {
			return fmt.Errorf("input %d: %w: %s, negotiated %s", i, frame.ErrShapeMismatch, f.Descriptor, s.inShapes[i])
		}
	}
	return nil
}

// checkShapes refuses descriptors that cannot back a frame. FormatUnknown
// is only meaningful while negotiating, so it never reaches a call.
func checkShapes(kind string, shapes []frame.Descriptor) error {
	for i, d := range shapes {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%s %d: %w", kind, i, err)
		}
		if d.Format.BytesPerPixel() == 0 {
			return fmt.Errorf("%s %d: pixel format %s cannot back a frame", kind, i, d.Format)
		}
	}
	return nil
}

// allocateOutputs hands out one buffer per negotiated output. A failure is
// the allocator's fault: nothing reaches the plugin and the stage stays usable.
func (s *Stage) allocateOutputs() ([]*frame.Buffer, [][]byte, error) {
	out := make([]*frame.Buffer, len(s.outShapes))
	pix := make([][]byte, len(s.outShapes))
	for i, d := range s.outShapes {
		pix[i] = s.alloc.Allocate(d)
		b, err := frame.Borrow(d, pix[i])
		if err != nil {
			for j := 0; j <= i; j++ {
				s.alloc.Recycle(s.outShapes[j], pix[j])
			}
			s.metrics.RecordError(s.name, "allocation")
			s.logger.Error("allocator returned unusable memory", zap.Int("output", i), zap.Error(err))
			return nil, nil, fmt.Errorf("%w: %s: output %d: %w", ErrProcessing, s.name, i, err)
		}
		out[i] = b
	}
	return out, pix, nil
}

// settle ends the call scope: every handle is revoked, the outputs are checked
// against what the host handed out and, when keep is set, turned into frames.
// Memory that does not leave as a frame goes back to the allocator.
func (s *Stage) settle(in, out []*frame.Buffer, pix [][]byte, keep bool) ([]Frame, error) {
	var violation error
	if len(s.ctx.Output) != len(out) {
		violation = fmt.Errorf("%w: %d outputs after the call, %d handed out", ErrOutputReplaced, len(s.ctx.Output), len(out))
	}
	for i, b := range out {
		if violation != nil {
			break
		}
		if s.ctx.Output[i] != b {
			violation = fmt.Errorf("%w: output %d", ErrOutputReplaced, i)
		} else if src := b.AliasOf(); src != nil && !containsBuffer(in, src) {
			violation = fmt.Errorf("%w: output %d aliased to a buffer that is not an input of this call", ErrOutputReplaced, i)
		}
	}

	for _, b := range in {
		b.Revoke()
	}
	for _, b := range s.ctx.Output {
		if b != nil {
			b.Revoke()
		}
	}
	s.ctx.Reset()

	keep = keep && violation == nil
	var frames []Frame
	if keep {
		frames = make([]Frame, len(out))
	}
	for i, b := range out {
		current := b.Revoke()
		aliased := b.AliasOf() != nil
		if !keep || aliased {
			s.alloc.Recycle(s.outShapes[i], pix[i])
		}
		if keep {
			frames[i] = Frame{Descriptor: s.outShapes[i], Pix: current}
		}
	}
	return frames, violation
}

// fail records a processing error and applies the error policy. Panics always
// disable the stage.
func (s *Stage) fail(op plugin.Op, err error) error {
	kind := "processing"
	if errors.Is(err, ErrPluginPanic) {
		kind = "panic"
	}
	s.metrics.RecordError(s.name, kind)

	if s.policy == PolicyDisable || kind == "panic" {
		s.failed = true
		s.logger.Error("stage disabled", zap.Stringer("op", op), zap.Error(err))
	} else {
		s.logger.Warn("frame set dropped", zap.Stringer("op", op), zap.Error(err))
	}
	return fmt.Errorf("%w: %s: %w", ErrProcessing, s.name, err)
}

// call runs a plugin call with panic recovery, timing and metrics
func (s *Stage) call(op plugin.Op, fn func() error) error {
	if s.profiler != nil {
		defer s.profiler.Start(s.name + "." + op.String())()
	}
	start := time.Now()
	err := s.guard(op.String(), fn)

	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordCall(s.name, op.String(), status, time.Since(start))
	return err
}

func (s *Stage) guard(what string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("%w: %s during %s: %w", ErrPluginPanic, s.name, what, rerr)
			} else {
				err = fmt.Errorf("%w: %s during %s: %v", ErrPluginPanic, s.name, what, r)
			}
		}
	}()
	return fn()
}

func checkStatus(status plugin.Status) error {
	switch status {
	case plugin.StatusOK, plugin.StatusTryAgain:
		return nil
	case plugin.StatusError:
		return errors.New("plugin reported an error without a cause")
	default:
		return fmt.Errorf("plugin returned unknown status %d", status)
	}
}

func containsBuffer(list []*frame.Buffer, b *frame.Buffer) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}
