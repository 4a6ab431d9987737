package provider

import (
	"context"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
)

// Kind identifies a builtin driver creation routine. Custom providers
// registered through Registry.Extend do not need a Kind.
type Kind string

const (
	// KindMock is the no-op echo driver used as the graceful fallback
	// and in tests.
	KindMock Kind = "mock"

	// KindOpenAICompat is the Chat Completions HTTP adapter for
	// OpenAI-compatible backends (OpenAI, vLLM, LiteLLM, Ollama, ...).
	KindOpenAICompat Kind = "openai_compat"
)

// Capability describes a feature a provider supports.
type Capability string

const (
	CapabilityToolCalling Capability = "tool_calling"
	CapabilityStreaming   Capability = "streaming"
	CapabilityVision      Capability = "vision"
)

// Descriptor holds the immutable metadata registered for a provider
// name. Descriptors are created at process start or via Registry.Register
// and never mutated afterwards.
type Descriptor struct {
	Name          string
	Kind          Kind
	Capabilities  []Capability
	MaxTokens     int
	ContextLength int
}

// Has reports whether the descriptor declares the given capability.
func (d Descriptor) Has(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// Config is the per-provider configuration block consumed during driver
// creation. It is owned by the configuration layer, not by this package.
type Config struct {
	// Provider is the logical provider name. The resolver fills it in
	// before invoking a creator, so creators and builtin routines can
	// name the driver they build.
	Provider string

	Kind          Kind
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	DefaultModel  string
}

// SendOptions carries per-request options for a driver call.
type SendOptions struct {
	Model     string
	MaxTokens int
}

// ValidationResult is the outcome of a credential check. Validation
// never fails with an error; problems degrade to Valid=false entries.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// HealthStatus describes a driver's connectivity at a point in time.
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Driver is a live, possibly stateful client for one provider.
// Implementations must be safe for concurrent use: a resolved handle is
// shared by every request until it is refreshed.
type Driver interface {
	// Name returns the logical provider name this driver serves.
	Name() string

	// SendMessage sends a message to the backend and returns its
	// response, including any tool calls the model emitted.
	SendMessage(ctx context.Context, msg *api.Message, opts SendOptions) (*api.Response, error)

	// ValidateCredentials checks that the driver can authenticate
	// against its backend.
	ValidateCredentials(ctx context.Context) ValidationResult

	// HealthStatus reports backend connectivity.
	HealthStatus(ctx context.Context) HealthStatus
}

// CreatorFunc builds a driver from resolved configuration. Creators
// registered through Registry.Extend take precedence over the builtin
// creation switch.
type CreatorFunc func(cfg Config) (Driver, error)
