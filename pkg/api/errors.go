package api

import (
	"fmt"
	"strings"
)

// ProviderNotFoundError reports an unknown or unconfigured provider name.
// It carries the attempted name and the list of currently known provider
// names for diagnostics.
type ProviderNotFoundError struct {
	Name  string
	Known []string
}

// Error implements the error interface.
func (e *ProviderNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("provider %q not found (no providers registered)", e.Name)
	}
	return fmt.Sprintf("provider %q not found (known providers: %s)",
		e.Name, strings.Join(e.Known, ", "))
}

// ProviderError reports that a known provider failed to construct or
// validate. The underlying cause is preserved for errors.Is/As.
type ProviderError struct {
	Name string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }

// MiddlewareNotFoundError reports a named middleware reference that
// cannot be resolved. It is raised at stack-build time, before any unit
// executes.
type MiddlewareNotFoundError struct {
	Name string
}

func (e *MiddlewareNotFoundError) Error() string {
	return fmt.Sprintf("middleware %q is not registered", e.Name)
}

// ToolNotFoundError reports an unknown tool name referenced by a model
// response.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Name)
}

// ToolExecutionError reports a tool dispatch failure: parameter
// validation, MCP gateway failure, or queue enqueue failure.
type ToolExecutionError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %q: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("tool %q: %s", e.Tool, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *ToolExecutionError) Unwrap() error { return e.Err }
