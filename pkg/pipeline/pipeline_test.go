package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/host"
	"github.com/justyntemme/framego/pkg/loader"
	"github.com/justyntemme/framego/pkg/pipeline"

	_ "github.com/justyntemme/framego/pkg/plugins/avgframes"
	_ "github.com/justyntemme/framego/pkg/plugins/blend"
	_ "github.com/justyntemme/framego/pkg/plugins/blur"
	_ "github.com/justyntemme/framego/pkg/plugins/split"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlConfig = `
name: demo
log_level: debug
source:
  frames: 10
  streams:
    - width: 16
      height: 8
      format: bgr24
      pattern: checker
branches:
  - name: smooth
    stages:
      - plugin: avgframes
        params: frames=3
  - stages:
      - plugin: blur
        params: "ksize=3"
        on_error: drop
      - plugin: split
        outputs: 4
`

const tomlConfig = `
name = "demo"
max_flush = 8

[source]
frames = 4

[[source.streams]]
width = 8
height = 8
format = "gray8"

[[source.streams]]
width = 4
height = 2
format = "gray8"
pattern = "solid"

[[branches]]
name = "mix"

[[branches.stages]]
plugin = "blend"
params = "alpha=0.25"
`

func TestLoadYAML(t *testing.T) {
	cfg, err := pipeline.Load(writeFile(t, "demo.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, host.DefaultMaxFlush, cfg.MaxFlush)
	assert.Equal(t, 10, cfg.Source.Frames)
	require.Len(t, cfg.Source.Streams, 1)
	assert.Equal(t, pipeline.PatternChecker, cfg.Source.Streams[0].Pattern)

	require.Len(t, cfg.Branches, 2)
	assert.Equal(t, "smooth", cfg.Branches[0].Name)
	assert.Equal(t, "branch1", cfg.Branches[1].Name)
	assert.Equal(t, "drop", cfg.Branches[1].Stages[0].OnError)
	assert.Equal(t, 4, cfg.Branches[1].Stages[1].Outputs)
}

func TestLoadTOML(t *testing.T) {
	cfg, err := pipeline.Load(writeFile(t, "mix.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.MaxFlush)
	require.Len(t, cfg.Source.Streams, 2)
	assert.Equal(t, pipeline.DefaultPattern, cfg.Source.Streams[0].Pattern)
	assert.Equal(t, pipeline.PatternSolid, cfg.Source.Streams[1].Pattern)
	require.Len(t, cfg.Branches, 1)
	assert.Equal(t, "blend", cfg.Branches[0].Stages[0].Plugin)
	assert.Equal(t, "alpha=0.25", cfg.Branches[0].Stages[0].Params)
}

func TestLoadDefaultsName(t *testing.T) {
	cfg, err := pipeline.Load(writeFile(t, "nightly.yml", "branches:\n  - stages:\n      - plugin: blur\n"))
	require.NoError(t, err)
	assert.Equal(t, "nightly", cfg.Name)
	assert.Equal(t, pipeline.DefaultFrames, cfg.Source.Frames)

	d, err := cfg.Source.Streams[0].Descriptor()
	require.NoError(t, err)
	assert.Equal(t, frame.NewDescriptor(pipeline.DefaultWidth, pipeline.DefaultHeight, frame.FormatBGR24), d)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "p.json", "{}"},
		{"no branches", "p.yaml", "name: x\n"},
		{"empty branch", "p.yaml", "branches:\n  - name: a\n"},
		{"missing plugin", "p.yaml", "branches:\n  - stages:\n      - params: x=1\n"},
		{"bad policy", "p.yaml", "branches:\n  - stages:\n      - plugin: blur\n        on_error: retry\n"},
		{"bad format", "p.yaml", "source:\n  streams:\n    - format: yuv420\nbranches:\n  - stages:\n      - plugin: blur\n"},
		{"unknown format", "p.yaml", "source:\n  streams:\n    - format: unknown\nbranches:\n  - stages:\n      - plugin: blur\n"},
		{"bad pattern", "p.yaml", "source:\n  streams:\n    - pattern: plaid\nbranches:\n  - stages:\n      - plugin: blur\n"},
		{"bad level", "p.yaml", "log_level: loud\nbranches:\n  - stages:\n      - plugin: blur\n"},
		{"duplicate branch", "p.yaml", "branches:\n  - name: a\n    stages:\n      - plugin: blur\n  - name: a\n    stages:\n      - plugin: blur\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.Load(writeFile(t, tt.file, tt.content))
			assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
		})
	}

	_, err := pipeline.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	dirs := "/opt/a" + string(os.PathListSeparator) + "/opt/b"
	require.NoError(t, os.WriteFile(envFile, []byte(
		"FRAMEGO_PLUGIN_DIRS="+dirs+"\nFRAMEGO_LOG_LEVEL=warn\nFRAMEGO_MAX_FLUSH=7\n"), 0o644))

	env, err := pipeline.LoadEnv(filepath.Join(dir, "absent.env"), envFile)
	require.NoError(t, err)

	cfg := &pipeline.Config{}
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, []string{"/opt/a", "/opt/b"}, cfg.PluginDirs)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7, cfg.MaxFlush)

	bad := map[string]string{pipeline.EnvMaxFlush: "lots"}
	assert.ErrorIs(t, cfg.ApplyEnv(func(k string) string { return bad[k] }), pipeline.ErrInvalidConfig)
	bad = map[string]string{pipeline.EnvLogLevel: "loud"}
	assert.ErrorIs(t, cfg.ApplyEnv(func(k string) string { return bad[k] }), pipeline.ErrInvalidConfig)
}

func TestSource(t *testing.T) {
	cfg := pipeline.SourceConfig{
		Frames: 3,
		Streams: []pipeline.StreamConfig{
			{Width: 4, Height: 4, Format: "bgr24", Pattern: pipeline.PatternNoise},
			{Width: 2, Height: 2, Format: "gray8", Pattern: pipeline.PatternGradient},
		},
	}
	a, err := pipeline.NewSource(cfg)
	require.NoError(t, err)
	b, err := pipeline.NewSource(cfg)
	require.NoError(t, err)

	assert.Len(t, a.Descriptors(), 2)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 3-i, a.Remaining())
		x, ok := a.Next()
		require.True(t, ok)
		y, _ := b.Next()
		require.Len(t, x, 2)
		for s := range x {
			require.NoError(t, x[s].Validate())
			assert.Equal(t, x[s].Pix, y[s].Pix, "frame %d stream %d", i, s)
		}
	}
	_, ok := a.Next()
	assert.False(t, ok)

	cfg.Streams[0].Pattern = "plaid"
	_, err = pipeline.NewSource(cfg)
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
}

func TestCheckerAlternates(t *testing.T) {
	src, err := pipeline.NewSource(pipeline.SourceConfig{
		Frames:  2,
		Streams: []pipeline.StreamConfig{{Width: 16, Height: 8, Format: "gray8", Pattern: pipeline.PatternChecker}},
	})
	require.NoError(t, err)

	first, _ := src.Next()
	second, _ := src.Next()
	assert.Equal(t, byte(255), first[0].Pix[0])
	assert.Equal(t, byte(0), first[0].Pix[8])
	assert.Equal(t, byte(0), second[0].Pix[0])
}

func newRunner(t *testing.T, content string) *pipeline.Runner {
	t.Helper()
	cfg, err := pipeline.Load(writeFile(t, "run.yaml", content))
	require.NoError(t, err)
	return pipeline.NewRunner(cfg, loader.New(nil), pipeline.WithLogger(zap.NewNop()))
}

func TestRun(t *testing.T) {
	report, err := newRunner(t, yamlConfig).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Branches, 2)
	assert.Equal(t, "demo", report.Name)

	smooth := report.Branches[0]
	assert.Equal(t, 10, smooth.Fed)
	assert.Equal(t, 10, smooth.Emitted, "every input yields one average once drained")
	assert.Equal(t, 2, smooth.Flushed)
	require.Len(t, smooth.Stages, 1)
	assert.Equal(t, "avgframes", smooth.Stages[0].Plugin)
	assert.Equal(t, uint64(10), smooth.Stages[0].Fed)

	fan := report.Branches[1]
	assert.Equal(t, 10, fan.Emitted)
	assert.Equal(t, 0, fan.Flushed)
	require.Len(t, fan.Stages, 2)
	d := frame.NewDescriptor(16, 8, frame.FormatBGR24)
	assert.Equal(t, []frame.Descriptor{d, d, d, d}, fan.Stages[1].Outputs)

	again, err := newRunner(t, yamlConfig).Run(context.Background())
	require.NoError(t, err)
	for i := range report.Branches {
		assert.Equal(t, report.Branches[i].Digest, again.Branches[i].Digest, "runs are deterministic")
	}
	assert.NotEqual(t, report.RunID, again.RunID)
}

func TestRunBlendResamples(t *testing.T) {
	report, err := newRunner(t, `
source:
  frames: 4
  streams:
    - {width: 8, height: 8, format: gray8}
    - {width: 4, height: 2, format: gray8, pattern: solid}
branches:
  - name: mix
    stages:
      - plugin: blend
        params: alpha=0.25
`).Run(context.Background())
	require.NoError(t, err)

	mix := report.Branches[0]
	assert.Equal(t, 4, mix.Emitted)
	require.Len(t, mix.Stages, 1)
	assert.Equal(t, []frame.Descriptor{frame.NewDescriptor(8, 8, frame.FormatGray8)}, mix.Stages[0].Outputs)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		stages string
		want   error
	}{
		{"unknown plugin", "      - plugin: sharpen\n", loader.ErrNotFound},
		{"too many outputs", "      - plugin: split\n        outputs: 5\n", host.ErrConfiguration},
		{"mismatched chain", "      - plugin: split\n        outputs: 2\n      - plugin: blur\n        inputs: 1\n", host.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRunner(t, "source:\n  frames: 2\nbranches:\n  - name: ok\n    stages:\n      - plugin: blur\n  - name: bad\n    stages:\n"+tt.stages)
			report, err := r.Run(context.Background())
			assert.ErrorIs(t, err, tt.want)
			require.NotNil(t, report)
			assert.Equal(t, "bad", report.Branches[1].Name)
		})
	}
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newRunner(t, yamlConfig).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	for _, b := range report.Branches {
		assert.Zero(t, b.Fed)
	}
}
