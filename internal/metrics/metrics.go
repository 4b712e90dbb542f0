// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lsm"

type Metrics struct {
	registry *prometheus.Registry

	SummaryRuns          *prometheus.CounterVec
	AgentCalls           *prometheus.CounterVec
	AgentCallDuration    *prometheus.HistogramVec
	SessionCreateAttempt *prometheus.CounterVec
}

// New registers every collector on a private registry so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		SummaryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_runs_total",
			Help:      "Daily summarization runs by outcome.",
		}, []string{"outcome"}),
		AgentCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_calls_total",
			Help:      "Calls to the agent runtime by operation and outcome.",
		}, []string{"op", "outcome"}),
		AgentCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_call_duration_seconds",
			Help:      "Latency of agent runtime calls.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"op"}),
		SessionCreateAttempt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_create_attempts_total",
			Help:      "Agent session create attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.SummaryRuns, m.AgentCalls, m.AgentCallDuration, m.SessionCreateAttempt)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAgentCall(op, outcome string, elapsed time.Duration) {
	m.AgentCalls.WithLabelValues(op, outcome).Inc()
	m.AgentCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSessionCreateAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.SessionCreateAttempt.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSummaryRun(outcome string) {
	m.SummaryRuns.WithLabelValues(outcome).Inc()
}
