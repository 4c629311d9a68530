package loader

import (
	"fmt"
	goplugin "plugin"

	"github.com/justyntemme/framego/pkg/plugin"
)

// Open loads a shared object built with -buildmode=plugin and returns its
// validated descriptor. Every failure wraps ErrUnusable.
func Open(path string) (*plugin.Descriptor, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrUnusable, path, err)
	}
	sym, err := p.Lookup(plugin.DescriptorSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnusable, path, err)
	}
	get, err := Symbol(sym)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnusable, path, err)
	}
	desc, err := describe(get)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnusable, path, err)
	}
	return desc, nil
}

// Symbol converts a looked-up registration symbol into a callable. Exported
// functions arrive as func values, exported variables as pointers to them.
func Symbol(sym any) (plugin.GetDescriptorFunc, error) {
	switch fn := sym.(type) {
	case func() *plugin.Descriptor:
		return fn, nil
	case plugin.GetDescriptorFunc:
		return fn, nil
	case *func() *plugin.Descriptor:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	case *plugin.GetDescriptorFunc:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	default:
		return nil, fmt.Errorf("symbol %s has type %T, want func() *plugin.Descriptor", plugin.DescriptorSymbol, sym)
	}
	return nil, fmt.Errorf("symbol %s is nil", plugin.DescriptorSymbol)
}
