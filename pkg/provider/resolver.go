package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/weiche-dev/weiche/pkg/api"
)

// Resolver maps provider names to live drivers. Handles are memoized:
// within one resolver lifetime, Resolve never returns two different
// instances for the same name unless Refresh intervenes. The cache is
// the only shared mutable state in the core; all read-check-insert
// paths run under the resolver's lock so concurrent first resolutions
// construct a driver exactly once.
type Resolver struct {
	mu       sync.RWMutex
	cache    map[string]Driver
	registry *Registry
	configs  map[string]Config
	def      string
	builtins map[Kind]CreatorFunc
	logger   *slog.Logger

	fallbackOnce sync.Once
	fallback     Driver
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithBuiltin registers a builtin creation routine for a driver kind.
// The mock kind is always available.
func WithBuiltin(kind Kind, creator CreatorFunc) ResolverOption {
	return func(r *Resolver) {
		r.builtins[kind] = creator
	}
}

// WithLogger sets the resolver's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver over the given registry and per-provider
// configuration blocks. defaultName is the provider used when Resolve is
// called without a name; when empty, a mock driver serves as the
// fallback.
func NewResolver(registry *Registry, configs map[string]Config, defaultName string, opts ...ResolverOption) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	if configs == nil {
		configs = make(map[string]Config)
	}
	r := &Resolver{
		cache:    make(map[string]Driver),
		registry: registry,
		configs:  configs,
		def:      defaultName,
		builtins: make(map[Kind]CreatorFunc),
		logger:   slog.Default(),
	}
	r.builtins[KindMock] = func(cfg Config) (Driver, error) {
		return NewMockDriver(cfg), nil
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry backing this resolver, for Register and
// Extend calls.
func (r *Resolver) Registry() *Registry { return r.registry }

// Resolve returns the driver for a provider name. An empty name resolves
// the configured default provider, falling back to a mock driver when no
// default is set.
func (r *Resolver) Resolve(name string) (Driver, error) {
	if name == "" {
		name = r.def
		if name == "" {
			return r.fallbackDriver(), nil
		}
	}

	r.mu.RLock()
	d, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have created the driver while we waited.
	if d, ok := r.cache[name]; ok {
		return d, nil
	}

	d, err := r.create(name)
	if err != nil {
		return nil, err
	}
	r.cache[name] = d
	r.logger.Debug("resolved provider driver", "provider", name)
	return d, nil
}

// create builds a driver for a name. Caller holds the write lock.
func (r *Resolver) create(name string) (Driver, error) {
	cfg, hasConfig := r.configs[name]
	cfg.Provider = name

	// A custom creator takes precedence over builtin creation.
	if creator, ok := r.registry.Creator(name); ok {
		d, err := creator(cfg)
		if err != nil {
			return nil, &api.ProviderError{Name: name, Err: err}
		}
		if d == nil {
			return nil, &api.ProviderError{Name: name, Err: errors.New("creator returned a nil driver")}
		}
		return d, nil
	}

	// Builtin creation keyed by the configured driver kind, with the
	// registered descriptor as a secondary source.
	kind := cfg.Kind
	if kind == "" {
		if desc, ok := r.registry.Descriptor(name); ok {
			kind = desc.Kind
		}
	}
	if kind == "" && !hasConfig {
		return nil, &api.ProviderNotFoundError{Name: name, Known: r.known()}
	}

	builtin, ok := r.builtins[kind]
	if !ok {
		return nil, &api.ProviderNotFoundError{Name: name, Known: r.known()}
	}

	d, err := builtin(cfg)
	if err != nil {
		return nil, &api.ProviderError{Name: name, Err: err}
	}
	return d, nil
}

// Refresh evicts the cached handle for a name, forcing re-creation on
// the next Resolve. Evicting an uncached name is not an error.
func (r *Resolver) Refresh(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, name)
}

// RefreshAll evicts every cached handle.
func (r *Resolver) RefreshAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]Driver)
}

// Validate resolves the driver for a name and runs its credential check.
// It never returns an error: resolution failures, credential failures,
// and panicking drivers all degrade to an invalid result.
func (r *Resolver) Validate(ctx context.Context, name string) (res ValidationResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = ValidationResult{Errors: []string{fmt.Sprintf("credential check panicked: %v", rec)}}
		}
	}()

	d, err := r.Resolve(name)
	if err != nil {
		return ValidationResult{Errors: []string{err.Error()}}
	}
	return d.ValidateCredentials(ctx)
}

// known returns the union of registered and configured provider names.
func (r *Resolver) known() []string {
	seen := make(map[string]bool)
	for _, name := range r.registry.Known() {
		seen[name] = true
	}
	for name := range r.configs {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) fallbackDriver() Driver {
	r.fallbackOnce.Do(func() {
		r.logger.Warn("no default provider configured, falling back to mock driver")
		r.fallback = NewMockDriver(Config{Provider: "mock"})
	})
	return r.fallback
}
