package provider

import (
	"context"
	"strings"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
)

// MockDriver is a no-op driver that echoes a canned reply. It serves as
// the graceful fallback when no default provider is configured, and as a
// scriptable backend for tests and demos.
type MockDriver struct {
	name  string
	model string

	// Reply overrides the default echo content when non-empty.
	Reply string

	// ToolCalls, when set, are attached to every response, simulating a
	// model that requests tool invocations.
	ToolCalls []api.ToolCall
}

// Ensure MockDriver implements Driver at compile time.
var _ Driver = (*MockDriver)(nil)

// NewMockDriver creates a mock driver from config. The provider name
// defaults to "mock" and the model to "mock-model".
func NewMockDriver(cfg Config) *MockDriver {
	name := cfg.Provider
	if name == "" {
		name = "mock"
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "mock-model"
	}
	return &MockDriver{name: name, model: model}
}

// Name implements Driver.
func (d *MockDriver) Name() string { return d.name }

// SendMessage returns a canned response with a rough word-count usage
// estimate, so downstream accounting has non-zero numbers to work with.
func (d *MockDriver) SendMessage(ctx context.Context, msg *api.Message, opts SendOptions) (*api.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := d.Reply
	if content == "" {
		content = "mock response to: " + msg.Content
	}

	model := opts.Model
	if model == "" {
		model = d.model
	}

	in := len(strings.Fields(msg.Content))
	out := len(strings.Fields(content))
	return &api.Response{
		Content:    content,
		ToolCalls:  d.ToolCalls,
		Usage:      api.Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
		ProviderID: d.name,
		ModelID:    model,
	}, nil
}

// ValidateCredentials implements Driver; the mock always validates.
func (d *MockDriver) ValidateCredentials(ctx context.Context) ValidationResult {
	return ValidationResult{Valid: true}
}

// HealthStatus implements Driver; the mock is always healthy.
func (d *MockDriver) HealthStatus(ctx context.Context) HealthStatus {
	return HealthStatus{Healthy: true, Detail: "mock driver", CheckedAt: time.Now()}
}
