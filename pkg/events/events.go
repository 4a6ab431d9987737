package events

import (
	"github.com/weiche-dev/weiche/pkg/api"
)

// Event names as they appear on the wire and in logs.
const (
	NameToolCalled        = "tool.called"
	NameToolCompleted     = "tool.completed"
	NameToolFailed        = "tool.failed"
	NameResponseGenerated = "response.generated"
)

// Event is implemented by every lifecycle event type.
type Event interface {
	EventName() string
}

// ToolCalled is emitted immediately before a tool call is dispatched.
type ToolCalled struct {
	Name           string         `json:"name"`
	Arguments      map[string]any `json:"arguments,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	MessageID      string         `json:"message_id,omitempty"`
}

// EventName implements Event.
func (ToolCalled) EventName() string { return NameToolCalled }

// ToolCompleted is emitted after a tool call finishes successfully,
// carrying the result payload and the elapsed execution time.
type ToolCompleted struct {
	Name           string         `json:"name"`
	Arguments      map[string]any `json:"arguments,omitempty"`
	Result         map[string]any `json:"result,omitempty"`
	ElapsedMS      int64          `json:"elapsed_ms"`
	UserID         string         `json:"user_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	MessageID      string         `json:"message_id,omitempty"`
}

// EventName implements Event.
func (ToolCompleted) EventName() string { return NameToolCompleted }

// ToolFailed is emitted when a tool call fails, whether during parameter
// validation, gateway execution, or queue enqueue.
type ToolFailed struct {
	Name           string         `json:"name"`
	Arguments      map[string]any `json:"arguments,omitempty"`
	Error          string         `json:"error"`
	ElapsedMS      int64          `json:"elapsed_ms"`
	UserID         string         `json:"user_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	MessageID      string         `json:"message_id,omitempty"`
}

// EventName implements Event.
func (ToolFailed) EventName() string { return NameToolFailed }

// ProviderMetadata identifies the backend that produced a response.
// Provider and Model are normalized to "unknown" and token counts to zero
// by the terminal handler when the response omits them.
type ProviderMetadata struct {
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	Usage    api.Usage `json:"usage"`
}

// ResponseGenerated is emitted by the pipeline's terminal handler once
// per completed request, carrying total wall time since the message
// entered the pipeline.
type ResponseGenerated struct {
	Message               *api.Message     `json:"message"`
	Response              *api.Response    `json:"response"`
	Context               map[string]any   `json:"context,omitempty"`
	TotalProcessingTimeMS int64            `json:"total_processing_time_ms"`
	Provider              ProviderMetadata `json:"provider_metadata"`
}

// EventName implements Event.
func (ResponseGenerated) EventName() string { return NameResponseGenerated }
