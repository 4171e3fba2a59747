// Package source hosts the built-in platform adapters and their
// registry. Browser-session platforms plug in behind the same
// interface; the coordinator never knows which kind it drives.
package source

import (
	"fmt"
	"sort"

	"techbriefing/internal/ports"
)

// Registry maps source names to their adapter implementations.
type Registry struct {
	adapters map[string]ports.SourceAdapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]ports.SourceAdapter{}}
}

// Register adds or replaces an adapter under its own source name.
func (r *Registry) Register(adapter ports.SourceAdapter) {
	if r.adapters == nil {
		r.adapters = map[string]ports.SourceAdapter{}
	}
	r.adapters[adapter.SourceName()] = adapter
}

// Resolve returns an adapter by source name.
func (r *Registry) Resolve(name string) (ports.SourceAdapter, error) {
	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// Names lists registered source names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
