// Command framego runs a pipeline of frame plugins over a synthetic source
// and reports what each branch produced.
//
//	framego -config pipeline.yaml [-env .env] [-dev] [-profile] [-watch] [-metrics-addr :9090]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/justyntemme/framego/pkg/framework/debug"
	"github.com/justyntemme/framego/pkg/host"
	"github.com/justyntemme/framego/pkg/loader"
	"github.com/justyntemme/framego/pkg/pipeline"

	_ "github.com/justyntemme/framego/pkg/plugins/avgframes"
	_ "github.com/justyntemme/framego/pkg/plugins/blend"
	_ "github.com/justyntemme/framego/pkg/plugins/blur"
	_ "github.com/justyntemme/framego/pkg/plugins/split"
)

type options struct {
	config      string
	envFile     string
	development bool
	profile     bool
	list        bool
	watch       bool
	metricsAddr string
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "", "Pipeline file (.yaml, .yml or .toml)")
	flag.StringVar(&opts.envFile, "env", ".env", "Environment file with FRAMEGO_* overrides")
	flag.BoolVar(&opts.development, "dev", false, "Human-readable development logging")
	flag.BoolVar(&opts.profile, "profile", false, "Print per-call timings after the run")
	flag.BoolVar(&opts.list, "list", false, "List available plugins and exit")
	flag.BoolVar(&opts.watch, "watch", false, "Rerun the pipeline whenever a plugin unit appears in a plugin directory")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address until interrupted")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "framego: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	env, err := pipeline.LoadEnv(opts.envFile)
	if err != nil {
		return err
	}
	getenv := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return env[key]
	}

	var cfg *pipeline.Config
	if opts.config != "" {
		if cfg, err = pipeline.Load(opts.config); err != nil {
			return err
		}
	} else if !opts.list {
		return errors.New("-config is required")
	} else {
		cfg = &pipeline.Config{}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return err
	}

	logger, err := debug.NewLogger(cfg.LogLevel, opts.development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	l := loader.New(cfg.PluginDirs, loader.WithLogger(logger))
	if n, err := l.LoadAll(); err != nil {
		logger.Warn("some plugin units could not be loaded", zap.Int("loaded", n), zap.Error(err))
	}

	if opts.list {
		printPlugins(l.Registry().List())
		return nil
	}

	registry := prometheus.NewRegistry()
	metrics := host.NewMetrics(registry)
	pool, err := host.NewPoolAllocator(0, 0, metrics)
	if err != nil {
		return err
	}
	profiler := debug.NewProfiler()
	profiler.SetEnabled(opts.profile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if opts.metricsAddr != "" {
		server = serveMetrics(opts.metricsAddr, registry, logger)
	}

	runner := pipeline.NewRunner(cfg, l,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithProfiler(profiler),
		pipeline.WithAllocator(pool),
	)
	runOnce := func() error {
		report, err := runner.Run(ctx)
		if report != nil {
			printReport(report)
		}
		if opts.profile {
			fmt.Println(profiler.Report())
			profiler.Reset()
		}
		return err
	}
	runErr := runOnce()

	if opts.watch {
		runErr = watch(ctx, l, runOnce, logger)
	}

	if server != nil {
		logger.Info("serving metrics until interrupted", zap.String("addr", opts.metricsAddr))
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	return runErr
}

// watch reruns the pipeline each time the loader registers a new unit
func watch(ctx context.Context, l *loader.Loader, runOnce func() error, logger *zap.Logger) error {
	loaded := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- l.Watch(ctx, func(path string, err error) {
			if err != nil {
				logger.Warn("plugin unit rejected", zap.String("path", path), zap.Error(err))
				return
			}
			select {
			case loaded <- path:
			default:
			}
		})
	}()

	for {
		select {
		case path := <-loaded:
			logger.Info("plugin unit loaded, rerunning", zap.String("path", path))
			if err := runOnce(); err != nil {
				logger.Error("pipeline run failed", zap.Error(err))
			}
		case err := <-done:
			return err
		}
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return server
}

func printPlugins(entries []loader.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tPRIORITY\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Name, e.Version, e.Priority, e.Source)
	}
	_ = w.Flush()
}

func printReport(r *pipeline.Report) {
	fmt.Printf("pipeline %s run %s (%s)\n", r.Name, r.RunID, r.Duration.Round(time.Microsecond))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BRANCH\tSTAGE\tFED\tPRODUCED\tDROPPED\tOUTPUTS")
	for _, b := range r.Branches {
		for _, s := range b.Stages {
			fmt.Fprintf(w, "%s\t%s@%s\t%d\t%d\t%d\t%v\n", b.Name, s.Plugin, s.Version, s.Fed, s.Produced, s.Dropped, s.Outputs)
		}
		fmt.Fprintf(w, "%s\t(total)\t%d\t%d\t-\tflushed=%d digest=%016x\n", b.Name, b.Fed, b.Emitted, b.Flushed, b.Digest)
	}
	_ = w.Flush()
}
