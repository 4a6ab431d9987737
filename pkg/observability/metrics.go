// Package observability provides Prometheus metrics for the request
// pipeline and an event sink that feeds them from lifecycle events.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference
// latencies, ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// ResponsesTotal counts generated responses by provider and model.
	ResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weiche_responses_total",
			Help: "Generated responses",
		},
		[]string{"provider", "model"},
	)

	// ResponseDuration records total pipeline processing time in seconds.
	ResponseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weiche_response_duration_seconds",
			Help:    "Pipeline processing duration",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weiche_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weiche_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// ToolDuration records tool dispatch duration in seconds.
	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weiche_tool_duration_seconds",
			Help:    "Tool dispatch duration",
			Buckets: LLMBuckets,
		},
		[]string{"tool_name"},
	)
)

func init() {
	prometheus.MustRegister(
		ResponsesTotal,
		ResponseDuration,
		ProviderTokensTotal,
		ToolExecutionsTotal,
		ToolDuration,
	)
}
