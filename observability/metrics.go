package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/toolpilot/provision"
	"github.com/jonwraymond/toolpilot/runtime"
)

const namespace = "toolpilot"

// Metrics holds the process collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	rounds        *prometheus.CounterVec
	roundDuration *prometheus.HistogramVec
	executions    *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	provisioning  *prometheus.CounterVec
	modelRequests *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rounds_total",
				Help:      "Instruction rounds by outcome.",
			},
			[]string{"outcome"},
		),
		roundDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "round_duration_seconds",
				Help:      "Instruction round duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_executions_total",
				Help:      "Capability executions.",
			},
			[]string{"capability", "succeeded"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Capability execution duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"capability"},
		),
		provisioning: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provisioning_total",
				Help:      "Capability resolutions by result.",
			},
			[]string{"result"},
		),
		modelRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_requests_total",
				Help:      "Model backend exchanges by result.",
			},
			[]string{"result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rounds, m.roundDuration,
		m.executions, m.toolDuration,
		m.provisioning, m.modelRequests,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRound records one instruction round.
func (m *Metrics) ObserveRound(outcome string, d time.Duration) {
	m.rounds.WithLabelValues(outcome).Inc()
	m.roundDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveExecution records one capability execution.
func (m *Metrics) ObserveExecution(r runtime.Result) {
	m.executions.WithLabelValues(r.Capability, strconv.FormatBool(r.Succeeded)).Inc()
	m.toolDuration.WithLabelValues(r.Capability).Observe(r.Duration.Seconds())
}

// ObserveProvision records one capability resolution.
func (m *Metrics) ObserveProvision(_ string, outcome provision.Outcome) {
	m.provisioning.WithLabelValues(string(outcome)).Inc()
}

// ObserveModel records one model backend exchange.
func (m *Metrics) ObserveModel(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.modelRequests.WithLabelValues(result).Inc()
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	label := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, label).Inc()
	m.httpDuration.WithLabelValues(method, path, label).Observe(d.Seconds())
}
