package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/debug"
	"github.com/justyntemme/framego/pkg/host"
	"github.com/justyntemme/framego/pkg/plugin"
)

// Resolver finds a plugin descriptor by name or path. *loader.Loader is the
// usual implementation.
type Resolver interface {
	Resolve(ref string) (*plugin.Descriptor, error)
}

// Runner runs every branch of a pipeline concurrently, each branch on its
// own source and its own plugin instances
type Runner struct {
	cfg      *Config
	plugins  Resolver
	logger   *zap.Logger
	metrics  *host.Metrics
	profiler *debug.Profiler
	alloc    host.Allocator
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithLogger sets the runner logger
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics sets the metrics shared by every stage
func WithMetrics(metrics *host.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = metrics }
}

// WithProfiler sets the profiler shared by every stage
func WithProfiler(p *debug.Profiler) RunnerOption {
	return func(r *Runner) { r.profiler = p }
}

// WithAllocator sets the allocator shared by every stage
func WithAllocator(alloc host.Allocator) RunnerOption {
	return func(r *Runner) { r.alloc = alloc }
}

// NewRunner creates a runner resolving plugins through plugins
func NewRunner(cfg *Config, plugins Resolver, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:     cfg,
		plugins: plugins,
		alloc:   host.HeapAllocator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = debug.OrNop(r.logger).Named("pipeline")
	return r
}

// Report summarizes a run
type Report struct {
	RunID    uuid.UUID
	Name     string
	Duration time.Duration
	Branches []BranchReport
}

// BranchReport summarizes one branch
type BranchReport struct {
	Name     string
	Fed      int
	Emitted  int
	Flushed  int
	Digest   uint64
	Stages   []StageReport
	Duration time.Duration
}

// StageReport summarizes one stage of a branch
type StageReport struct {
	Name    string
	Plugin  string
	Version string
	Inputs  []frame.Descriptor
	Outputs []frame.Descriptor
	host.Stats
}

// Run builds and runs every branch. The first failing branch cancels the
// others; partial reports are returned alongside the error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:    uuid.New(),
		Name:     r.cfg.Name,
		Branches: make([]BranchReport, len(r.cfg.Branches)),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID.String()), zap.String("pipeline", r.cfg.Name))
	logger.Info("starting pipeline", zap.Int("branches", len(r.cfg.Branches)), zap.Int("frames", r.cfg.Source.Frames))

	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	for i, branch := range r.cfg.Branches {
		i, branch := i, branch
		eg.Go(func() error {
			br, err := r.runBranch(ctx, branch, logger.With(zap.String("branch", branch.Name)))
			report.Branches[i] = br
			if err != nil {
				return fmt.Errorf("branch %s: %w", branch.Name, err)
			}
			return nil
		})
	}
	err := eg.Wait()
	report.Duration = time.Since(start)

	if err != nil {
		logger.Error("pipeline failed", zap.Error(err))
		return report, err
	}
	logger.Info("pipeline finished", zap.Duration("duration", report.Duration))
	return report, nil
}

func (r *Runner) runBranch(ctx context.Context, cfg BranchConfig, logger *zap.Logger) (br BranchReport, err error) {
	br.Name = cfg.Name
	start := time.Now()
	defer func() { br.Duration = time.Since(start) }()

	src, err := NewSource(r.cfg.Source)
	if err != nil {
		return br, err
	}
	chain, err := r.Build(cfg, src.Descriptors(), logger)
	if err != nil {
		return br, err
	}
	defer chain.Close()
	defer func() { br.Stages = stageReports(chain) }()

	digest := xxhash.New()
	emit := func(frames []host.Frame) error {
		br.Emitted++
		for _, f := range frames {
			_, _ = digest.Write(f.Pix)
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return br, err
		}
		set, ok := src.Next()
		if !ok {
			break
		}
		br.Fed++
		out, ok, err := chain.Feed(set)
		if err != nil {
			return br, err
		}
		if ok {
			_ = emit(out)
		}
	}

	before := br.Emitted
	if err := chain.Drain(emit); err != nil {
		return br, err
	}
	br.Flushed = br.Emitted - before
	br.Digest = digest.Sum64()

	logger.Info("branch finished",
		zap.Int("fed", br.Fed),
		zap.Int("emitted", br.Emitted),
		zap.Int("flushed", br.Flushed),
		zap.String("digest", fmt.Sprintf("%016x", br.Digest)))
	return br, nil
}

// Build creates, initializes and configures the stages of a branch fed with
// frames of the given shapes. On error every stage created so far is
// uninitialized.
func (r *Runner) Build(cfg BranchConfig, shapes []frame.Descriptor, logger *zap.Logger) (*host.Chain, error) {
	logger = debug.OrNop(logger)
	builder := host.NewChainBuilder(cfg.Name)
	var stages []*host.Stage
	cleanup := func() {
		for _, s := range stages {
			s.Uninit()
		}
	}

	for k, sc := range cfg.Stages {
		stage, err := r.newStage(cfg.Name, k, sc, logger)
		if err != nil {
			cleanup()
			return nil, err
		}
		stages = append(stages, stage)

		inputs, outputs := sc.Inputs, sc.Outputs
		if inputs == 0 {
			inputs = len(shapes)
		}
		if outputs == 0 {
			outputs = 1
		}
		if err := stage.Init(sc.Params, inputs, outputs); err != nil {
			cleanup()
			return nil, fmt.Errorf("stage %d (%s): %w", k, sc.Plugin, err)
		}
		if shapes, err = stage.Configure(shapes); err != nil {
			cleanup()
			return nil, fmt.Errorf("stage %d (%s): %w", k, sc.Plugin, err)
		}
		logger.Debug("stage ready",
			zap.String("stage", stage.Name()),
			zap.Int("inputs", inputs),
			zap.Int("outputs", outputs),
			zap.Stringer("policy", stage.Policy()))

		builder.WithStage(stage, r.cfg.MaxFlush)
	}

	chain, err := builder.Build()
	if err != nil {
		cleanup()
		return nil, err
	}
	return chain, nil
}

func (r *Runner) newStage(branch string, k int, sc StageConfig, logger *zap.Logger) (*host.Stage, error) {
	if r.plugins == nil {
		return nil, errors.New("runner has no plugin resolver")
	}
	desc, err := r.plugins.Resolve(sc.Plugin)
	if err != nil {
		return nil, fmt.Errorf("stage %d: %w", k, err)
	}
	policy, err := host.ParsePolicy(sc.OnError)
	if err != nil {
		return nil, fmt.Errorf("stage %d: %w", k, err)
	}
	return host.NewStage(desc,
		host.WithName(fmt.Sprintf("%s/%d/%s", branch, k, desc.Name)),
		host.WithLogger(logger),
		host.WithMetrics(r.metrics),
		host.WithProfiler(r.profiler),
		host.WithAllocator(r.alloc),
		host.WithPolicy(policy),
	)
}

func stageReports(chain *host.Chain) []StageReport {
	reports := make([]StageReport, 0, chain.Count())
	for _, d := range chain.Drivers() {
		s := d.Stage()
		reports = append(reports, StageReport{
			Name:    s.Name(),
			Plugin:  s.Descriptor().Name,
			Version: s.Descriptor().Version,
			Inputs:  s.InputShapes(),
			Outputs: s.OutputShapes(),
			Stats:   d.Stats(),
		})
	}
	return reports
}
