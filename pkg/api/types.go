package api

// Message roles. Matches the Chat Completions role vocabulary used by
// OpenAI-compatible backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Well-known metadata keys. Middleware and the pipeline communicate
// through message metadata; these keys are part of the contract with
// downstream observability consumers and must not be renamed.
const (
	// MetaMiddlewareApplied holds the ordered list of middleware unit
	// names that have run for this message ([]string).
	MetaMiddlewareApplied = "middleware_applied"

	// MetaProcessingStart holds the time the message entered the
	// pipeline (time.Time). Stamped at pipeline entry when absent.
	MetaProcessingStart = "processing_start_time"

	// MetaUserID, MetaConversationID, and MetaMessageID identify the
	// request for lifecycle events and queued job payloads.
	MetaUserID         = "user_id"
	MetaConversationID = "conversation_id"
	MetaMessageID      = "message_id"

	// MetaAuthorization carries a bearer token for the jwt_auth
	// middleware unit.
	MetaAuthorization = "authorization"

	// MetaToolResults holds the dispatched tool results for the message
	// ([]ToolResult). Written by the terminal handler after dispatch.
	MetaToolResults = "tool_results"
)

// Message is the unit that flows through the middleware pipeline.
// Metadata is mutated additively by middleware: a unit may add or append
// to keys but must not destructively overwrite values written by an
// earlier stage.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EnsureMetadata initializes the metadata map if it is nil and returns it.
func (m *Message) EnsureMetadata() map[string]any {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	return m.Metadata
}

// AppendMiddleware records a middleware unit name in the applied list.
func (m *Message) AppendMiddleware(name string) {
	md := m.EnsureMetadata()
	applied, _ := md[MetaMiddlewareApplied].([]string)
	md[MetaMiddlewareApplied] = append(applied, name)
}

// AppliedMiddleware returns the ordered list of middleware unit names
// that have run for this message.
func (m *Message) AppliedMiddleware() []string {
	if m.Metadata == nil {
		return nil
	}
	applied, _ := m.Metadata[MetaMiddlewareApplied].([]string)
	return applied
}

// MetaString returns the string value for a metadata key, or "".
func (m *Message) MetaString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	s, _ := m.Metadata[key].(string)
	return s
}

// Usage holds token accounting for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is produced once per successful terminal-handler invocation.
type Response struct {
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Usage      Usage      `json:"usage"`
	ProviderID string     `json:"provider_id,omitempty"`
	ModelID    string     `json:"model_id,omitempty"`
}

// ToolCall is a model's request to invoke a tool. It is ephemeral and
// exists only for the duration of one response's processing.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ResultStatus is the terminal state of a dispatched tool call.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// ToolResult is the outcome of exactly one ToolCall. Every dispatched
// call produces one ToolResult, failures included; a failure is captured
// as a ResultError entry, never silently dropped.
type ToolResult struct {
	ToolCallID string         `json:"tool_call_id"`
	Name       string         `json:"name"`
	Status     ResultStatus   `json:"status"`
	Payload    map[string]any `json:"payload,omitempty"`
	Error      string         `json:"error,omitempty"`
}
