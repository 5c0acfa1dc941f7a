package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for the cognitive loop's hot path,
// grounded on nexus's own Metrics struct (same promauto registration
// pattern) but re-scoped from chat-gateway traffic to the cognitive core's
// own components: ticks, the thought buffer, actions, tools, the LLM
// endpoint, and memory tiers. Additive to spec.md's
// get_performance_stats(), not a replacement for it.
type Metrics struct {
	// TickDuration measures one cognitive-loop tick's wall time.
	// Labels: mode (responsive|planning|reflective|spoken)
	TickDuration *prometheus.HistogramVec

	// TickCounter counts ticks by mode.
	TickCounter *prometheus.CounterVec

	// ThoughtBufferSize is a gauge of the current processed-thought count.
	ThoughtBufferSize prometheus.Gauge

	// PendingEvents is a gauge of unprocessed raw events.
	PendingEvents prometheus.Gauge

	// ActionThrottled counts throttled tool-action attempts by tool.
	ActionThrottled *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations by tool and outcome
	// (completed|failed|timeout).
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution latency.
	ToolExecutionDuration *prometheus.HistogramVec

	// LLMRequestDuration measures language-model HTTP call latency.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts language-model calls by provider, model,
	// and status (success|error|timeout).
	LLMRequestCounter *prometheus.CounterVec

	// EmbeddingRequestCounter counts embedding calls by provider and
	// status.
	EmbeddingRequestCounter *prometheus.CounterVec

	// MemoryTierSize is a gauge of entry counts per tier (short|medium|
	// long|base).
	MemoryTierSize *prometheus.GaugeVec

	// ErrorCounter tracks errors by component and error kind (spec §7).
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics. Call once at
// startup.
func NewMetrics() *Metrics {
	return &Metrics{
		TickDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cortex_tick_duration_seconds",
				Help:    "Duration of one cognitive loop tick in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"mode"},
		),
		TickCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_ticks_total",
				Help: "Total number of cognitive loop ticks by mode",
			},
			[]string{"mode"},
		),
		ThoughtBufferSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cortex_thought_buffer_size",
				Help: "Current number of processed thoughts held in the buffer",
			},
		),
		PendingEvents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cortex_pending_events",
				Help: "Current number of unprocessed raw events",
			},
		),
		ActionThrottled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_action_throttled_total",
				Help: "Total number of tool actions rejected by the throttle gate",
			},
			[]string{"tool_name"},
		),
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_tool_executions_total",
				Help: "Total number of tool executions by tool name and outcome",
			},
			[]string{"tool_name", "outcome"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cortex_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cortex_llm_request_duration_seconds",
				Help:    "Duration of language model requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_llm_requests_total",
				Help: "Total number of language model requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		EmbeddingRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_embedding_requests_total",
				Help: "Total number of embedding requests by provider and status",
			},
			[]string{"provider", "status"},
		),
		MemoryTierSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cortex_memory_tier_size",
				Help: "Current entry count per memory tier",
			},
			[]string{"tier"},
		),
		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cortex_errors_total",
				Help: "Total number of errors by component and error kind",
			},
			[]string{"component", "kind"},
		),
	}
}

// RecordTick records one tick's mode and duration.
func (m *Metrics) RecordTick(mode string, durationSeconds float64) {
	m.TickCounter.WithLabelValues(mode).Inc()
	m.TickDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordLLMRequest records one language-model call's outcome and latency.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordToolExecution records one tool invocation's outcome and latency.
func (m *Metrics) RecordToolExecution(toolName, outcome string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, outcome).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for a component and error kind
// (spec §7's error-kind table).
func (m *Metrics) RecordError(component, kind string) {
	m.ErrorCounter.WithLabelValues(component, kind).Inc()
}

// SetMemoryTierSize updates the gauge for one memory tier.
func (m *Metrics) SetMemoryTierSize(tier string, size int) {
	m.MemoryTierSize.WithLabelValues(tier).Set(float64(size))
}
