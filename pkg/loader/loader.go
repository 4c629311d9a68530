package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/justyntemme/framego/pkg/plugin"
)

// Extension is the file extension of loadable plugin units
const Extension = ".so"

// OpenFunc opens one plugin unit
type OpenFunc func(path string) (*plugin.Descriptor, error)

// Loader resolves plugin names against the built-in registry and shared
// objects found in plugin directories
type Loader struct {
	registry *Registry
	dirs     []string
	open     OpenFunc
	logger   *zap.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithRegistry resolves names against registry instead of a copy of the built-ins
func WithRegistry(registry *Registry) Option {
	return func(l *Loader) { l.registry = registry }
}

// WithOpener replaces the shared-object opener
func WithOpener(open OpenFunc) Option {
	return func(l *Loader) { l.open = open }
}

// WithLogger sets the loader logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a loader searching dirs. Unless WithRegistry is given, it starts
// from the bundled plugins.
func New(dirs []string, opts ...Option) *Loader {
	l := &Loader{
		dirs:   dirs,
		open:   Open,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("loader")
	if l.registry == nil {
		l.registry = NewRegistry(l.logger)
		for _, e := range builtins.List() {
			desc := e.Descriptor
			_ = l.registry.Register(func() *plugin.Descriptor { return desc }, e.Priority, e.Source)
		}
	}
	return l
}

// Registry returns the registry the loader resolves against
func (l *Loader) Registry() *Registry {
	return l.registry
}

// Dirs returns the plugin directories
func (l *Loader) Dirs() []string {
	return l.dirs
}

// LoadAll loads every plugin directory. Unusable units are skipped and
// reported together; the rest stay registered.
func (l *Loader) LoadAll() (int, error) {
	total := 0
	var errs []error
	for _, dir := range l.dirs {
		n, err := l.LoadDir(dir)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// LoadDir opens every unit in dir and registers the usable ones
func (l *Loader) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && IsUnit(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	loaded := 0
	var errs []error
	for _, name := range names {
		if err := l.LoadFile(filepath.Join(dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}

// LoadFile opens one unit and registers it
func (l *Loader) LoadFile(path string) error {
	desc, err := l.open(path)
	if err != nil {
		l.logger.Warn("skipping unusable plugin", zap.String("path", path), zap.Error(err))
		if !errors.Is(err, ErrUnusable) {
			err = fmt.Errorf("%w: %w", ErrUnusable, err)
		}
		return err
	}
	if err := l.registry.Register(func() *plugin.Descriptor { return desc }, PriorityFile, path); err != nil {
		l.logger.Warn("skipping unusable plugin", zap.String("path", path), zap.Error(err))
		return err
	}
	l.logger.Info("plugin loaded",
		zap.String("plugin", desc.Name),
		zap.String("version", desc.Version),
		zap.String("path", path))
	return nil
}

// Resolve returns the descriptor for a plugin name, or opens ref directly
// when it is a path to a unit
func (l *Loader) Resolve(ref string) (*plugin.Descriptor, error) {
	if IsUnit(ref) || strings.ContainsRune(ref, filepath.Separator) {
		desc, err := l.open(ref)
		if err != nil && !errors.Is(err, ErrUnusable) {
			err = fmt.Errorf("%w: %w", ErrUnusable, err)
		}
		return desc, err
	}
	return l.registry.Lookup(ref)
}

// IsUnit reports whether a file name looks like a loadable plugin unit
func IsUnit(name string) bool {
	return filepath.Ext(name) == Extension
}
