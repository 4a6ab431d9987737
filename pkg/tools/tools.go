package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// Kind classifies how a tool call is dispatched.
type Kind string

const (
	// KindImmediate tools execute synchronously through the MCP gateway;
	// the caller blocks until the result is available.
	KindImmediate Kind = "immediate"

	// KindQueued tools are published as background jobs; the caller gets
	// a queued acknowledgement, never the execution outcome.
	KindQueued Kind = "queued"
)

// Descriptor declares a dispatchable tool.
type Descriptor struct {
	// Name is the tool's unique dispatch name.
	Name string `json:"name"`

	// Kind selects the dispatch path.
	Kind Kind `json:"kind"`

	// Server names the MCP server that hosts an immediate tool. Ignored
	// for queued tools.
	Server string `json:"server,omitempty"`

	// Topic is the queue topic for a queued tool. Defaults to the tool
	// name when empty. Ignored for immediate tools.
	Topic string `json:"topic,omitempty"`

	// Description is surfaced to models when advertising the tool.
	Description string `json:"description,omitempty"`

	// Parameters is the JSON schema for the tool's arguments.
	Parameters json.RawMessage `json:"parameters,omitempty"`

	// Required lists argument names that must be present before the call
	// produces any side effect.
	Required []string `json:"required,omitempty"`
}

// Gateway executes immediate tools against an external tool host. The
// MCP implementation lives in the mcp subpackage.
type Gateway interface {
	// ExecuteTool runs the named tool on the given server and returns its
	// raw result payload.
	ExecuteTool(ctx context.Context, server, tool string, args map[string]any) (any, error)
}

// Registry maps tool names to descriptors. Registration is
// last-write-wins so a later configuration pass can override a tool
// without unregistering first.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Descriptor
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Descriptor)}
}

// Register adds or replaces a tool descriptor under its name.
func (r *Registry) Register(desc Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[desc.Name]; exists {
		slog.Debug("replacing tool registration", "tool", desc.Name)
	}
	r.tools[desc.Name] = desc
}

// Lookup returns the descriptor for a tool name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.tools[name]
	return desc, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns all registered descriptors, ordered by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}
