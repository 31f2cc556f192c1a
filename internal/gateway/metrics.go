package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ronitrai27/looma-agent/internal/agent"
	"github.com/ronitrai27/looma-agent/internal/provider"
)

// Metrics exposes pipeline counters on a dedicated Prometheus registry so
// tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	runs              *prometheus.CounterVec
	generationSeconds prometheus.Histogram
	promptTokens      prometheus.Counter
	completionTokens  prometheus.Counter
	hooksAccepted     prometheus.Counter
	hooksRejected     prometheus.Counter
}

// Compile-time interface check.
var _ agent.Recorder = (*Metrics)(nil)

// NewMetrics creates a Metrics with its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "looma_agent_pipeline_runs_total",
			Help: "Pipeline runs by terminal stage.",
		}, []string{"stage", "responded"}),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "looma_agent_generation_seconds",
			Help:    "Latency of successful Gemini generations.",
			Buckets: prometheus.DefBuckets,
		}),
		promptTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "looma_agent_prompt_tokens_total",
			Help: "Estimated prompt tokens sent to the model.",
		}),
		completionTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "looma_agent_completion_tokens_total",
			Help: "Estimated completion tokens received from the model.",
		}),
		hooksAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "looma_agent_hooks_accepted_total",
			Help: "Message hooks accepted for processing.",
		}),
		hooksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "looma_agent_hooks_rejected_total",
			Help: "Message hooks rejected before processing.",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.generationSeconds,
		m.promptTokens,
		m.completionTokens,
		m.hooksAccepted,
		m.hooksRejected,
	)
	return m
}

// RecordRun implements agent.Recorder.
func (m *Metrics) RecordRun(stage string, responded bool) {
	v := "false"
	if responded {
		v = "true"
	}
	m.runs.WithLabelValues(stage, v).Inc()
}

// RecordGeneration implements agent.Recorder.
func (m *Metrics) RecordGeneration(elapsed time.Duration, usage provider.Usage) {
	m.generationSeconds.Observe(elapsed.Seconds())
	m.promptTokens.Add(float64(usage.PromptTokens))
	m.completionTokens.Add(float64(usage.CompletionTokens))
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
