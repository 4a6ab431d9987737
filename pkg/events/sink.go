package events

import (
	"context"
	"log/slog"
)

// Sink consumes lifecycle events. Implementations must return quickly;
// a sink that needs to do slow work should hand off internally.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc is an adapter that allows using an ordinary function as a Sink.
type SinkFunc func(ctx context.Context, ev Event)

// Emit calls f(ctx, ev).
func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// Sinks fans an event out to multiple sinks in order. A panicking sink is
// logged and skipped; the remaining sinks still receive the event.
type Sinks []Sink

// Emit implements Sink.
func (s Sinks) Emit(ctx context.Context, ev Event) {
	for _, sink := range s {
		emitSafe(ctx, sink, ev)
	}
}

func emitSafe(ctx context.Context, sink Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event sink panicked",
				"event", ev.EventName(),
				"panic", r,
			)
		}
	}()
	sink.Emit(ctx, ev)
}

// Discard is a Sink that drops every event. Useful as a default when a
// component is constructed without observability wiring.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// LogSink returns a Sink that writes structured log entries for each
// event. Tool failures log at warn level, everything else at info.
func LogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return SinkFunc(func(ctx context.Context, ev Event) {
		switch e := ev.(type) {
		case ToolCalled:
			logger.InfoContext(ctx, "tool called",
				"tool", e.Name,
				"user_id", e.UserID,
				"conversation_id", e.ConversationID,
			)
		case ToolCompleted:
			logger.InfoContext(ctx, "tool completed",
				"tool", e.Name,
				"elapsed_ms", e.ElapsedMS,
			)
		case ToolFailed:
			logger.WarnContext(ctx, "tool failed",
				"tool", e.Name,
				"error", e.Error,
				"elapsed_ms", e.ElapsedMS,
			)
		case ResponseGenerated:
			logger.InfoContext(ctx, "response generated",
				"provider", e.Provider.Provider,
				"model", e.Provider.Model,
				"total_tokens", e.Provider.Usage.TotalTokens,
				"total_processing_time_ms", e.TotalProcessingTimeMS,
			)
		default:
			logger.InfoContext(ctx, "event", "event", ev.EventName())
		}
	})
}
