// Package pipeline describes, builds and runs frame pipelines made of plugin
// stages fed by a synthetic source.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/justyntemme/framego/pkg/frame"
	"github.com/justyntemme/framego/pkg/framework/debug"
	"github.com/justyntemme/framego/pkg/host"
)

// Environment variables overriding the pipeline file
const (
	EnvPluginDirs = "FRAMEGO_PLUGIN_DIRS"
	EnvLogLevel   = "FRAMEGO_LOG_LEVEL"
	EnvMaxFlush   = "FRAMEGO_MAX_FLUSH"
)

// Defaults applied to omitted fields
const (
	DefaultFrames  = 30
	DefaultWidth   = 64
	DefaultHeight  = 48
	DefaultFormat  = "bgr24"
	DefaultPattern = PatternGradient
)

// ErrInvalidConfig is returned for pipeline files that cannot be run
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Config is a pipeline file
type Config struct {
	Name       string         `yaml:"name" toml:"name"`
	PluginDirs []string       `yaml:"plugin_dirs" toml:"plugin_dirs"`
	LogLevel   string         `yaml:"log_level" toml:"log_level"`
	MaxFlush   int            `yaml:"max_flush" toml:"max_flush"`
	Source     SourceConfig   `yaml:"source" toml:"source"`
	Branches   []BranchConfig `yaml:"branches" toml:"branches"`
}

// SourceConfig describes the synthetic input streams shared by all branches
type SourceConfig struct {
	Frames  int            `yaml:"frames" toml:"frames"`
	Streams []StreamConfig `yaml:"streams" toml:"streams"`
}

// StreamConfig describes one synthetic input stream
type StreamConfig struct {
	Width   int    `yaml:"width" toml:"width"`
	Height  int    `yaml:"height" toml:"height"`
	Format  string `yaml:"format" toml:"format"`
	Pattern string `yaml:"pattern" toml:"pattern"`
}

// BranchConfig is one linear chain of stages fed by every source stream
type BranchConfig struct {
	Name   string        `yaml:"name" toml:"name"`
	Stages []StageConfig `yaml:"stages" toml:"stages"`
}

// StageConfig configures one plugin instance. Inputs defaults to the number
// of upstream frames and Outputs to 1.
type StageConfig struct {
	Plugin  string `yaml:"plugin" toml:"plugin"`
	Params  string `yaml:"params" toml:"params"`
	Inputs  int    `yaml:"inputs" toml:"inputs"`
	Outputs int    `yaml:"outputs" toml:"outputs"`
	OnError string `yaml:"on_error" toml:"on_error"`
}

// Load reads a pipeline file, YAML or TOML by extension, applies defaults
// and validates it. Environment overrides are applied separately.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidConfig, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv reads KEY=VALUE files without touching the process environment.
// Later files win. Missing files are skipped.
func LoadEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overrides fields from getenv, typically os.Getenv
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if dirs := getenv(EnvPluginDirs); dirs != "" {
		c.PluginDirs = filepath.SplitList(dirs)
	}
	if level := getenv(EnvLogLevel); level != "" {
		if _, err := debug.ParseLevel(level); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvLogLevel, err)
		}
		c.LogLevel = level
	}
	if raw := getenv(EnvMaxFlush); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer, got %q", ErrInvalidConfig, EnvMaxFlush, raw)
		}
		c.MaxFlush = n
	}
	return nil
}

// ApplyDefaults fills omitted fields
func (c *Config) ApplyDefaults() {
	if c.MaxFlush == 0 {
		c.MaxFlush = host.DefaultMaxFlush
	}
	if c.Source.Frames == 0 {
		c.Source.Frames = DefaultFrames
	}
	if len(c.Source.Streams) == 0 {
		c.Source.Streams = []StreamConfig{{}}
	}
	for i := range c.Source.Streams {
		s := &c.Source.Streams[i]
		if s.Width == 0 {
			s.Width = DefaultWidth
		}
		if s.Height == 0 {
			s.Height = DefaultHeight
		}
		if s.Format == "" {
			s.Format = DefaultFormat
		}
		if s.Pattern == "" {
			s.Pattern = DefaultPattern
		}
	}
	for i := range c.Branches {
		if c.Branches[i].Name == "" {
			c.Branches[i].Name = fmt.Sprintf("branch%d", i)
		}
	}
}

// Validate checks everything that can be checked without loading plugins
func (c *Config) Validate() error {
	var errs []error
	if _, err := debug.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Source.Frames < 0 {
		errs = append(errs, fmt.Errorf("source.frames must not be negative"))
	}
	for i, s := range c.Source.Streams {
		if _, err := s.Descriptor(); err != nil {
			errs = append(errs, fmt.Errorf("source.streams[%d]: %w", i, err))
		}
		if !validPattern(s.Pattern) {
			errs = append(errs, fmt.Errorf("source.streams[%d]: unknown pattern %q", i, s.Pattern))
		}
	}
	if len(c.Branches) == 0 {
		errs = append(errs, fmt.Errorf("no branches configured"))
	}

	names := make(map[string]bool)
	for i, b := range c.Branches {
		if names[b.Name] {
			errs = append(errs, fmt.Errorf("branches[%d]: duplicate name %q", i, b.Name))
		}
		names[b.Name] = true
		if len(b.Stages) == 0 {
			errs = append(errs, fmt.Errorf("branch %s has no stages", b.Name))
		}
		for k, s := range b.Stages {
			if s.Plugin == "" {
				errs = append(errs, fmt.Errorf("branch %s stage %d: plugin is required", b.Name, k))
			}
			if s.Inputs < 0 || s.Outputs < 0 {
				errs = append(errs, fmt.Errorf("branch %s stage %d: pin counts must not be negative", b.Name, k))
			}
			if _, err := host.ParsePolicy(s.OnError); err != nil {
				errs = append(errs, fmt.Errorf("branch %s stage %d: %w", b.Name, k, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Descriptor returns the frame descriptor of the stream
func (s StreamConfig) Descriptor() (frame.Descriptor, error) {
	format, err := frame.ParseFormat(s.Format)
	if err != nil {
		return frame.Descriptor{}, err
	}
	if format.BytesPerPixel() == 0 {
		return frame.Descriptor{}, fmt.Errorf("pixel format %s cannot back a frame", format)
	}
	d := frame.NewDescriptor(s.Width, s.Height, format)
	if err := d.Validate(); err != nil {
		return frame.Descriptor{}, err
	}
	return d, nil
}
