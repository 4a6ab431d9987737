package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/events"
	"github.com/weiche-dev/weiche/pkg/provider"
	"github.com/weiche-dev/weiche/pkg/tools"
)

// unknownValue is substituted when a driver omits its provenance.
const unknownValue = "unknown"

// Terminal is the pipeline's innermost handler. It resolves a driver,
// sends the message, dispatches any tool calls the model requested, and
// emits ResponseGenerated.
type Terminal struct {
	resolver *provider.Resolver
	executor *tools.Executor
	sink     events.Sink
	logger   *slog.Logger
	opts     provider.SendOptions
}

// Ensure Terminal implements Handler at compile time.
var _ Handler = (*Terminal)(nil)

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithExecutor sets the tool executor used for model tool calls. Without
// one, tool calls pass through undispatched.
func WithExecutor(e *tools.Executor) TerminalOption {
	return func(t *Terminal) { t.executor = e }
}

// WithSink sets the lifecycle event sink.
func WithSink(s events.Sink) TerminalOption {
	return func(t *Terminal) { t.sink = s }
}

// WithTerminalLogger sets the terminal's logger.
func WithTerminalLogger(l *slog.Logger) TerminalOption {
	return func(t *Terminal) { t.logger = l }
}

// WithSendOptions sets the options passed to every SendMessage.
func WithSendOptions(opts provider.SendOptions) TerminalOption {
	return func(t *Terminal) { t.opts = opts }
}

// NewTerminal creates the terminal handler over a driver resolver.
func NewTerminal(resolver *provider.Resolver, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		resolver: resolver,
		sink:     events.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle implements Handler. Driver resolution and send failures
// propagate; they are downstream errors, not middleware failures.
func (t *Terminal) Handle(ctx context.Context, msg *api.Message) (*api.Response, error) {
	driver, err := t.resolver.Resolve("")
	if err != nil {
		return nil, err
	}

	resp, err := driver.SendMessage(ctx, msg, t.opts)
	if err != nil {
		return nil, err
	}

	normalize(resp)

	eventCtx := map[string]any{}
	if t.executor != nil && len(resp.ToolCalls) > 0 {
		results := t.executor.ProcessToolCalls(ctx, msg, resp.ToolCalls)
		eventCtx["tool_results"] = results
		msg.EnsureMetadata()[api.MetaToolResults] = results
	}

	t.sink.Emit(ctx, events.ResponseGenerated{
		Message:               msg,
		Response:              resp,
		Context:               eventCtx,
		TotalProcessingTimeMS: elapsedSince(msg),
		Provider: events.ProviderMetadata{
			Provider: resp.ProviderID,
			Model:    resp.ModelID,
			Usage:    resp.Usage,
		},
	})

	return resp, nil
}

// normalize fills in provenance a driver left empty so consumers never
// see blank provider or model fields.
func normalize(resp *api.Response) {
	if resp.ProviderID == "" {
		resp.ProviderID = unknownValue
	}
	if resp.ModelID == "" {
		resp.ModelID = unknownValue
	}
	if resp.Usage.TotalTokens == 0 {
		resp.Usage.TotalTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	}
}

// elapsedSince reads the processing start stamp from the message
// metadata, treating a missing or foreign value as "now".
func elapsedSince(msg *api.Message) int64 {
	if msg.Metadata != nil {
		if start, ok := msg.Metadata[api.MetaProcessingStart].(time.Time); ok {
			return time.Since(start).Milliseconds()
		}
	}
	return 0
}
