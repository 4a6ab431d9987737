package observability

import (
	"context"

	"github.com/weiche-dev/weiche/pkg/events"
)

// MetricsSink feeds the Prometheus metrics from lifecycle events. Wire
// it into the event fan-out alongside logging and usage sinks.
type MetricsSink struct{}

// Ensure MetricsSink implements events.Sink at compile time.
var _ events.Sink = MetricsSink{}

// NewMetricsSink creates a MetricsSink.
func NewMetricsSink() MetricsSink { return MetricsSink{} }

// Emit implements events.Sink. Unrecognized event types are ignored.
func (MetricsSink) Emit(ctx context.Context, e events.Event) {
	switch ev := e.(type) {
	case events.ToolCompleted:
		ToolExecutionsTotal.WithLabelValues(ev.Name, "ok").Inc()
		ToolDuration.WithLabelValues(ev.Name).Observe(float64(ev.ElapsedMS) / 1000)

	case events.ToolFailed:
		ToolExecutionsTotal.WithLabelValues(ev.Name, "error").Inc()
		ToolDuration.WithLabelValues(ev.Name).Observe(float64(ev.ElapsedMS) / 1000)

	case events.ResponseGenerated:
		provider := ev.Provider.Provider
		model := ev.Provider.Model
		ResponsesTotal.WithLabelValues(provider, model).Inc()
		ResponseDuration.WithLabelValues(provider, model).Observe(float64(ev.TotalProcessingTimeMS) / 1000)
		ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(ev.Provider.Usage.InputTokens))
		ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(ev.Provider.Usage.OutputTokens))
	}
}
