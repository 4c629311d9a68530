// Package loader discovers plugin descriptors: built-ins registered at init
// time and shared objects opened from plugin directories.
package loader

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/justyntemme/framego/pkg/plugin"
)

// Priority constants for registration.
// Higher priority values override lower priority entries with the same name.
const (
	// PriorityDefault is used for plugins compiled into the host
	PriorityDefault = 0
	// PriorityFile is used for plugins opened from a plugin directory, so a
	// shared object replaces a built-in of the same name
	PriorityFile = 50
	// PriorityOverride always wins
	PriorityOverride = 100
)

// SourceBuiltin is the Source of plugins compiled into the host
const SourceBuiltin = "builtin"

var (
	// ErrUnusable is returned for units without a valid registration symbol or
	// with an incompatible API version
	ErrUnusable = errors.New("plugin unusable")
	// ErrNotFound is returned when no plugin is registered under a name
	ErrNotFound = errors.New("plugin not found")
)

// Entry is a registered plugin
type Entry struct {
	Name       string
	Version    string
	Priority   int
	Source     string
	Descriptor *plugin.Descriptor
}

// Registry maps plugin names to descriptors
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	logger  *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]Entry),
		logger:  logger.Named("registry"),
	}
}

// Register validates the descriptor returned by get and adds it. An existing
// entry with the same name is replaced unless it has a higher priority.
func (r *Registry) Register(get plugin.GetDescriptorFunc, priority int, source string) error {
	desc, err := describe(get)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnusable, source, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[desc.Name]; ok {
		if priority < existing.Priority {
			r.logger.Debug("registration skipped",
				zap.String("plugin", desc.Name),
				zap.String("source", source),
				zap.Int("priority", priority),
				zap.Int("existing_priority", existing.Priority))
			return nil
		}
		r.logger.Info("plugin overridden",
			zap.String("plugin", desc.Name),
			zap.String("old_source", existing.Source),
			zap.String("source", source))
	}

	r.entries[desc.Name] = Entry{
		Name:       desc.Name,
		Version:    desc.Version,
		Priority:   priority,
		Source:     source,
		Descriptor: desc,
	}
	r.logger.Debug("plugin registered",
		zap.String("plugin", desc.Name),
		zap.String("version", desc.Version),
		zap.String("source", source))
	return nil
}

// Lookup returns the descriptor registered under name
func (r *Registry) Lookup(name string) (*plugin.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.Descriptor, nil
}

// List returns all entries sorted by name
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Len returns the number of registered plugins
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

var builtins = NewRegistry(nil)

// Builtins returns the registry that bundled plugins add themselves to
func Builtins() *Registry {
	return builtins
}

// MustRegister adds a bundled plugin to the built-in registry. It is meant
// for init functions and panics on an invalid descriptor.
func MustRegister(get plugin.GetDescriptorFunc) {
	if err := builtins.Register(get, PriorityDefault, SourceBuiltin); err != nil {
		panic(err)
	}
}

// describe calls a registration function, converting panics into errors
func describe(get plugin.GetDescriptorFunc) (desc *plugin.Descriptor, err error) {
	if get == nil {
		return nil, errors.New("nil registration function")
	}
	defer func() {
		if r := recover(); r != nil {
			desc, err = nil, fmt.Errorf("registration function panicked: %v", r)
		}
	}()

	desc = get()
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}
