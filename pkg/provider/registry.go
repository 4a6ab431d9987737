package provider

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry holds provider descriptors and custom creator functions,
// keyed by provider name. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
	creators    map[string]CreatorFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]Descriptor),
		creators:    make(map[string]CreatorFunc),
	}
}

// Register upserts descriptor metadata for a name. Registration is
// last-write-wins: a later registration with the same name replaces the
// earlier metadata, which is how duplicate overrides are expressed.
func (r *Registry) Register(name string, desc Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[name]; exists {
		slog.Debug("replacing provider descriptor", "provider", name)
	}
	desc.Name = name
	r.descriptors[name] = desc
}

// Extend registers a custom creator for a name. The creator takes
// precedence over the builtin creation switch during resolution.
func (r *Registry) Extend(name string, creator CreatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[name] = creator
}

// Descriptor returns the registered descriptor for a name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Creator returns the custom creator for a name, if one is registered.
func (r *Registry) Creator(name string) (CreatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creators[name]
	return c, ok
}

// Known returns the sorted union of names with a descriptor or a
// creator. Used for diagnostics in ProviderNotFoundError.
func (r *Registry) Known() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.descriptors)+len(r.creators))
	for name := range r.descriptors {
		seen[name] = true
	}
	for name := range r.creators {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
