package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusDegraded = "degraded"
)

// Metrics holds all Prometheus metrics for agents, tools and model calls.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Agent metrics
	AgentExecutionsTotal      *prometheus.CounterVec
	AgentExecutionDuration    *prometheus.HistogramVec
	AgentExecutionErrorsTotal *prometheus.CounterVec
	AgentIterations           *prometheus.HistogramVec

	// Tool metrics
	ToolExecutionsTotal      *prometheus.CounterVec
	ToolExecutionDuration    *prometheus.HistogramVec
	ToolExecutionErrorsTotal *prometheus.CounterVec

	// Model metrics
	ModelCallsTotal      *prometheus.CounterVec
	ModelCallDuration    *prometheus.HistogramVec
	ModelCallErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		AgentExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuron_agent_executions_total",
				Help: "Total number of agent executions",
			},
			[]string{"agent", "status"},
		),
		AgentExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neuron_agent_execution_duration_seconds",
				Help:    "Duration of agent executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		AgentExecutionErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuron_agent_execution_errors_total",
				Help: "Total number of agent executions that returned an error",
			},
			[]string{"agent", "error_code"},
		),
		AgentIterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neuron_agent_iterations",
				Help:    "Model turns taken per agent execution",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"agent"},
		),

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuron_tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neuron_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ToolExecutionErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuron_tool_execution_errors_total",
				Help: "Total number of tool execution errors",
			},
			[]string{"tool", "error_code"},
		),

		ModelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuron_model_calls_total",
				Help: "Total number of model gateway calls",
			},
			[]string{"provider", "status"},
		),
		ModelCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neuron_model_call_duration_seconds",
				Help:    "Duration of model gateway calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		ModelCallErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuron_model_call_errors_total",
				Help: "Total number of degraded model gateway calls",
			},
			[]string{"provider", "error_code"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(
		m.AgentExecutionsTotal,
		m.AgentExecutionDuration,
		m.AgentExecutionErrorsTotal,
		m.AgentIterations,
		m.ToolExecutionsTotal,
		m.ToolExecutionDuration,
		m.ToolExecutionErrorsTotal,
		m.ModelCallsTotal,
		m.ModelCallDuration,
		m.ModelCallErrorsTotal,
	)
}

// RecordExecution records one agent Execute call. An empty errorCode means success.
func (m *Metrics) RecordExecution(agent string, duration time.Duration, iterations int, errorCode string) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if errorCode != "" {
		status = StatusError
		m.AgentExecutionErrorsTotal.WithLabelValues(agent, errorCode).Inc()
	}
	m.AgentExecutionsTotal.WithLabelValues(agent, status).Inc()
	m.AgentExecutionDuration.WithLabelValues(agent).Observe(duration.Seconds())
	m.AgentIterations.WithLabelValues(agent).Observe(float64(iterations))
}

// RecordToolCall records one tool dispatch. An empty errorCode means success.
func (m *Metrics) RecordToolCall(tool string, duration time.Duration, errorCode string) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if errorCode != "" {
		status = StatusError
		m.ToolExecutionErrorsTotal.WithLabelValues(tool, errorCode).Inc()
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordModelCall records one gateway call. An empty errorCode means the turn was not degraded.
func (m *Metrics) RecordModelCall(provider string, duration time.Duration, errorCode string) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if errorCode != "" {
		status = StatusDegraded
		m.ModelCallErrorsTotal.WithLabelValues(provider, errorCode).Inc()
	}
	m.ModelCallsTotal.WithLabelValues(provider, status).Inc()
	m.ModelCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
