// Package provider defines the driver contract for AI backends and the
// resolution machinery that maps logical provider names to live driver
// instances.
//
// A Registry holds provider descriptors and custom creator functions; a
// Resolver turns names into drivers, memoizing one handle per name for
// its lifetime. Resolution order is: cached handle, custom creator,
// builtin creation switch on the configured driver kind. Unknown names
// fail with api.ProviderNotFoundError carrying the list of known
// providers.
//
// The core never implements a real backend itself: adapters live in
// subpackages (openaicompat) or are supplied by callers through
// Registry.Extend. The in-package MockDriver exists as the graceful
// fallback when no default provider is configured, and for tests.
package provider
