package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/events"
	"github.com/weiche-dev/weiche/pkg/queue"
)

// Executor dispatches tool calls according to their registered
// descriptors. Immediate tools go through the gateway, queued tools
// through the job queue.
type Executor struct {
	registry *Registry
	gateway  Gateway
	queue    queue.Queue
	sink     events.Sink
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithGateway sets the MCP gateway used for immediate tools.
func WithGateway(g Gateway) ExecutorOption {
	return func(e *Executor) { e.gateway = g }
}

// WithQueue sets the job queue used for queued tools.
func WithQueue(q queue.Queue) ExecutorOption {
	return func(e *Executor) { e.queue = q }
}

// WithSink sets the lifecycle event sink.
func WithSink(s events.Sink) ExecutorOption {
	return func(e *Executor) { e.sink = s }
}

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an Executor over the given registry. Without a
// gateway, immediate tools fail at dispatch; without a queue, queued
// tools do.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		sink:     events.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessToolCalls dispatches a batch of tool calls and returns one
// result per call, in input order. A failing call is captured as an
// error result; it never stops the remaining calls.
func (e *Executor) ProcessToolCalls(ctx context.Context, msg *api.Message, calls []api.ToolCall) []api.ToolResult {
	results := make([]api.ToolResult, 0, len(calls))
	for _, call := range calls {
		res, err := e.ExecuteToolCall(ctx, msg, call)
		if err != nil {
			e.logger.Warn("tool call failed",
				"tool", call.Name,
				"call_id", call.ID,
				"error", err,
			)
			results = append(results, api.ToolResult{
				ToolCallID: call.ID,
				Name:       call.Name,
				Status:     api.ResultError,
				Error:      err.Error(),
			})
			continue
		}
		results = append(results, res)
	}
	return results
}

// ExecuteToolCall dispatches one tool call. Required arguments are
// checked before any side effect: a call failing validation never
// reaches the gateway or the queue.
func (e *Executor) ExecuteToolCall(ctx context.Context, msg *api.Message, call api.ToolCall) (api.ToolResult, error) {
	desc, ok := e.registry.Lookup(call.Name)
	if !ok {
		return api.ToolResult{}, &api.ToolNotFoundError{Name: call.Name}
	}

	ident := identityFrom(msg)

	if missing := missingRequired(desc, call.Arguments); missing != "" {
		err := &api.ToolExecutionError{
			Tool:   call.Name,
			Reason: fmt.Sprintf("missing required argument %q", missing),
		}
		e.sink.Emit(ctx, events.ToolFailed{
			Name:           call.Name,
			Arguments:      call.Arguments,
			Error:          err.Error(),
			UserID:         ident.userID,
			ConversationID: ident.conversationID,
			MessageID:      ident.messageID,
		})
		return api.ToolResult{}, err
	}

	e.sink.Emit(ctx, events.ToolCalled{
		Name:           call.Name,
		Arguments:      call.Arguments,
		UserID:         ident.userID,
		ConversationID: ident.conversationID,
		MessageID:      ident.messageID,
	})

	start := time.Now()

	var payload map[string]any
	var err error
	switch desc.Kind {
	case KindQueued:
		payload, err = e.dispatchQueued(ctx, desc, call, msg, ident)
	default:
		payload, err = e.dispatchImmediate(ctx, desc, call)
	}

	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		e.sink.Emit(ctx, events.ToolFailed{
			Name:           call.Name,
			Arguments:      call.Arguments,
			Error:          err.Error(),
			ElapsedMS:      elapsed,
			UserID:         ident.userID,
			ConversationID: ident.conversationID,
			MessageID:      ident.messageID,
		})
		return api.ToolResult{}, err
	}

	e.sink.Emit(ctx, events.ToolCompleted{
		Name:           call.Name,
		Arguments:      call.Arguments,
		Result:         payload,
		ElapsedMS:      elapsed,
		UserID:         ident.userID,
		ConversationID: ident.conversationID,
		MessageID:      ident.messageID,
	})

	return api.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Status:     api.ResultSuccess,
		Payload:    payload,
	}, nil
}

// dispatchImmediate executes a tool synchronously through the gateway
// and wraps the raw result in the immediate envelope.
func (e *Executor) dispatchImmediate(ctx context.Context, desc Descriptor, call api.ToolCall) (map[string]any, error) {
	if e.gateway == nil {
		return nil, &api.ToolExecutionError{Tool: call.Name, Reason: "no gateway configured"}
	}

	result, err := e.gateway.ExecuteTool(ctx, desc.Server, call.Name, call.Arguments)
	if err != nil {
		return nil, &api.ToolExecutionError{Tool: call.Name, Reason: "gateway execution failed", Err: err}
	}

	return map[string]any{
		"type":          "mcp_result",
		"executionMode": "immediate",
		"result":        result,
	}, nil
}

// dispatchQueued publishes a background job and returns the queued
// acknowledgement. The execution outcome is never part of the response.
func (e *Executor) dispatchQueued(ctx context.Context, desc Descriptor, call api.ToolCall, msg *api.Message, ident identity) (map[string]any, error) {
	if e.queue == nil {
		return nil, &api.ToolExecutionError{Tool: call.Name, Reason: "no queue configured"}
	}

	topic := desc.Topic
	if topic == "" {
		topic = call.Name
	}

	job := queue.Job{
		ID:             api.NewJobID(),
		FunctionName:   call.Name,
		Arguments:      call.Arguments,
		UserID:         ident.userID,
		ConversationID: ident.conversationID,
		MessageID:      ident.messageID,
		EnqueuedAt:     time.Now().UTC(),
	}
	if msg != nil && msg.Content != "" {
		job.Context = map[string]any{"message_content": msg.Content}
	}

	if err := e.queue.Enqueue(ctx, topic, job); err != nil {
		return nil, &api.ToolExecutionError{Tool: call.Name, Reason: "enqueue failed", Err: err}
	}

	return map[string]any{
		"type":          "function_event_queued",
		"status":        "queued",
		"executionMode": "background",
		"job_id":        job.ID,
	}, nil
}

// missingRequired returns the first required argument absent from args,
// or "" when the call is complete.
func missingRequired(desc Descriptor, args map[string]any) string {
	for _, name := range desc.Required {
		if _, ok := args[name]; !ok {
			return name
		}
	}
	return ""
}

type identity struct {
	userID         string
	conversationID string
	messageID      string
}

func identityFrom(msg *api.Message) identity {
	if msg == nil {
		return identity{}
	}
	return identity{
		userID:         msg.MetaString(api.MetaUserID),
		conversationID: msg.MetaString(api.MetaConversationID),
		messageID:      msg.MetaString(api.MetaMessageID),
	}
}
