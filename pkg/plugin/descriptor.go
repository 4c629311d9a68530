package plugin

import (
	"errors"
	"fmt"
	"sync"

	fwplugin "github.com/justyntemme/framego/pkg/framework/plugin"
)

var (
	// ErrAPIVersion is returned when a descriptor was built against another contract version
	ErrAPIVersion = errors.New("plugin API version mismatch")
	// ErrInvalidDescriptor is returned for descriptors missing required fields
	ErrInvalidDescriptor = errors.New("invalid plugin descriptor")
	// ErrDescriptorCount is returned by Configure for the wrong number of descriptors
	ErrDescriptorCount = fwplugin.ErrDescriptorCount
)

// Descriptor is the registration record a loadable unit exposes. There is
// exactly one per unit; it is built once and never mutated.
type Descriptor struct {
	APIVersion  int
	Name        string
	Description string
	Version     string

	// Create returns a fresh instance in the Created state
	Create func() Instance
	// Destroy disposes of an instance returned by Create. Hosts must release
	// instances through it and nothing else.
	Destroy func(Instance)
}

// GetDescriptorFunc is the type of the exported DescriptorSymbol
type GetDescriptorFunc func() *Descriptor

// Validate checks version compatibility and required fields
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}
	if d.APIVersion != APIVersion {
		return fmt.Errorf("%w: plugin %q has %d, host supports %d", ErrAPIVersion, d.Name, d.APIVersion, APIVersion)
	}
	if err := d.Info().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if d.Create == nil || d.Destroy == nil {
		return fmt.Errorf("%w: plugin %q needs both create and destroy", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// Info returns the descriptor metadata
func (d *Descriptor) Info() fwplugin.Info {
	return fwplugin.Info{Name: d.Name, Description: d.Description, Version: d.Version}
}

// Entry builds the exported getter for a plugin. The descriptor is
// constructed lazily on first call and the same pointer is returned forever
// after. Instances need no explicit teardown beyond Uninit, so Destroy only
// drops the reference.
//
//	var GetDescriptor = plugin.Entry(fwplugin.Info{Name: "blur"}, func() plugin.Instance { return New() })
func Entry(info fwplugin.Info, create func() Instance) GetDescriptorFunc {
	return EntryWithDestroy(info, create, func(Instance) {})
}

// EntryWithDestroy is Entry with a custom destructor
func EntryWithDestroy(info fwplugin.Info, create func() Instance, destroy func(Instance)) GetDescriptorFunc {
	return sync.OnceValue(func() *Descriptor {
		return &Descriptor{
			APIVersion:  APIVersion,
			Name:        info.Name,
			Description: info.Description,
			Version:     info.Version,
			Create:      create,
			Destroy:     destroy,
		}
	})
}
