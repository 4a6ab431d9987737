package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/provider"
)

const defaultTimeout = 120 * time.Second

// Driver talks to an OpenAI-compatible Chat Completions backend.
type Driver struct {
	name          string
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	defaultModel  string
	retryAttempts int
}

// Ensure Driver implements provider.Driver at compile time.
var _ provider.Driver = (*Driver)(nil)

// Creator adapts New to the provider.CreatorFunc signature, for wiring
// into the resolver's builtin switch.
var Creator provider.CreatorFunc = func(cfg provider.Config) (provider.Driver, error) {
	return New(cfg)
}

// New creates a Driver from the provider configuration block.
// BaseURL is required.
func New(cfg provider.Config) (*Driver, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: base_url is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	name := cfg.Provider
	if name == "" {
		name = "openai_compat"
	}

	return &Driver{
		name:          name,
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		defaultModel:  cfg.DefaultModel,
		retryAttempts: cfg.RetryAttempts,
	}, nil
}

// Name implements provider.Driver.
func (d *Driver) Name() string { return d.name }

// SendMessage performs one non-streaming completion. Network errors and
// 5xx responses are retried up to the configured retry budget; 4xx
// responses fail immediately.
func (d *Driver) SendMessage(ctx context.Context, msg *api.Message, opts provider.SendOptions) (*api.Response, error) {
	model := opts.Model
	if model == "" {
		model = d.defaultModel
	}
	if model == "" {
		return nil, fmt.Errorf("openaicompat: no model configured for provider %q", d.name)
	}

	role := msg.Role
	if role == "" {
		role = api.RoleUser
	}

	chatReq := chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: role, Content: msg.Content}},
		MaxTokens: opts.MaxTokens,
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	attempts := d.retryAttempts + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, retryable, err := d.complete(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

// complete performs a single HTTP round trip. The second return value
// reports whether the failure is worth retrying.
func (d *Driver) complete(ctx context.Context, body []byte) (*api.Response, bool, error) {
	url := d.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("backend request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, httpResp.StatusCode >= 500, d.statusError(httpResp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, false, fmt.Errorf("parsing backend response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, false, fmt.Errorf("backend produced no choices")
	}

	return d.translate(&chatResp), false, nil
}

// translate converts a Chat Completions response into the pipeline's
// Response type, decoding tool call argument objects.
func (d *Driver) translate(chatResp *chatResponse) *api.Response {
	choice := chatResp.Choices[0]

	var calls []api.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		args := make(map[string]any)
		if tc.Function.Arguments != "" {
			// Malformed argument JSON from the backend degrades to an
			// empty argument map; validation downstream will reject the
			// call if required fields are missing.
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		id := tc.ID
		if id == "" {
			id = api.NewCallID()
		}
		calls = append(calls, api.ToolCall{ID: id, Name: tc.Function.Name, Arguments: args})
	}

	return &api.Response{
		Content:   choice.Message.Content,
		ToolCalls: calls,
		Usage: api.Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:  chatResp.Usage.TotalTokens,
		},
		ProviderID: d.name,
		ModelID:    chatResp.Model,
	}
}

func (d *Driver) statusError(httpResp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
	var errResp errorResponse
	if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
		return fmt.Errorf("backend returned %d: %s", httpResp.StatusCode, errResp.Error.Message)
	}
	return fmt.Errorf("backend returned %d", httpResp.StatusCode)
}

// ValidateCredentials probes GET /v1/models with the configured key.
// Failures degrade to a structured invalid result, never an error.
func (d *Driver) ValidateCredentials(ctx context.Context) provider.ValidationResult {
	status, err := d.probeModels(ctx)
	switch {
	case err != nil:
		return provider.ValidationResult{Errors: []string{err.Error()}}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return provider.ValidationResult{Errors: []string{
			fmt.Sprintf("backend rejected credentials (%d)", status),
		}}
	case status < 200 || status >= 300:
		return provider.ValidationResult{Errors: []string{
			fmt.Sprintf("backend returned %d from /v1/models", status),
		}}
	}
	return provider.ValidationResult{Valid: true}
}

// HealthStatus probes GET /v1/models for connectivity.
func (d *Driver) HealthStatus(ctx context.Context) provider.HealthStatus {
	now := time.Now()
	status, err := d.probeModels(ctx)
	if err != nil {
		return provider.HealthStatus{Detail: err.Error(), CheckedAt: now}
	}
	if status < 200 || status >= 300 {
		return provider.HealthStatus{
			Detail:    fmt.Sprintf("backend returned %d", status),
			CheckedAt: now,
		}
	}
	return provider.HealthStatus{Healthy: true, CheckedAt: now}
}

func (d *Driver) probeModels(ctx context.Context) (int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/v1/models", nil)
	if err != nil {
		return 0, err
	}
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer httpResp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096))
	return httpResp.StatusCode, nil
}
