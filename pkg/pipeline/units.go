package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
)

// RequestStamp ensures every message carries an ID before the rest of
// the chain runs. It is meant to be the outermost global unit.
func RequestStamp() Unit {
	return UnitFunc("request_stamp", func(ctx context.Context, msg *api.Message, next Handler) (*api.Response, error) {
		md := msg.EnsureMetadata()
		if msg.MetaString(api.MetaMessageID) == "" {
			md[api.MetaMessageID] = api.NewMessageID()
		}
		return next.Handle(ctx, msg)
	})
}

// RequestLogging logs one line per processed message with the outcome
// and total chain duration.
func RequestLogging(logger *slog.Logger) Unit {
	if logger == nil {
		logger = slog.Default()
	}
	return UnitFunc("request_logging", func(ctx context.Context, msg *api.Message, next Handler) (*api.Response, error) {
		start := time.Now()
		resp, err := next.Handle(ctx, msg)

		attrs := []any{
			"message_id", msg.MetaString(api.MetaMessageID),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Error("request failed", append(attrs, "error", err)...)
			return resp, err
		}
		logger.Info("request processed", append(attrs,
			"provider", resp.ProviderID,
			"model", resp.ModelID,
			"total_tokens", resp.Usage.TotalTokens,
		)...)
		return resp, nil
	})
}
