package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/shieldgate/internal/domain/service"
)

var _ service.GuardMetrics = (*Metrics)(nil)

// Metrics manages the Prometheus metrics of the defense pipeline.
// Tenant ids are deliberately not used as labels to keep cardinality bounded.
type Metrics struct {
	InputVerdicts       *prometheus.CounterVec
	RateLimitDecisions  *prometheus.CounterVec
	OutputVerdicts      *prometheus.CounterVec
	GenerationRequests  *prometheus.CounterVec
	GenerationLatency   *prometheus.HistogramVec
	IsolationViolations prometheus.Counter
	AuditWriteFailures  *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent from the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InputVerdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shieldgate_input_verdicts_total",
				Help: "Input validation verdicts by threat level and outcome.",
			},
			[]string{"level", "outcome"},
		),
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shieldgate_rate_limit_decisions_total",
				Help: "Rate limiter decisions by scope and result.",
			},
			[]string{"scope", "result"},
		),
		OutputVerdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shieldgate_output_verdicts_total",
				Help: "Output validation outcomes.",
			},
			[]string{"outcome"},
		),
		GenerationRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shieldgate_generation_requests_total",
				Help: "Calls to the text-generation service by result.",
			},
			[]string{"result"},
		),
		GenerationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shieldgate_generation_latency_seconds",
				Help:    "Latency of text-generation calls.",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 6, 8, 10},
			},
			[]string{"result"},
		),
		IsolationViolations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shieldgate_isolation_violations_total",
				Help: "Tenant ownership mismatches detected by the application-level check.",
			},
		),
		AuditWriteFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shieldgate_audit_write_failures_total",
				Help: "Security events that could not be written to a sink.",
			},
			[]string{"sink"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shieldgate_http_requests_total",
				Help: "HTTP requests by method, route template and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shieldgate_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route template.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordInputVerdict records one input validation result.
func (m *Metrics) RecordInputVerdict(level string, blocked bool) {
	outcome := "allowed"
	if blocked {
		outcome = "blocked"
	}
	m.InputVerdicts.WithLabelValues(level, outcome).Inc()
}

// RecordRateLimitDecision records an admission decision.
func (m *Metrics) RecordRateLimitDecision(scope string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	m.RateLimitDecisions.WithLabelValues(scope, result).Inc()
}

// RecordOutputVerdict records accepted, flagged or rejected output.
func (m *Metrics) RecordOutputVerdict(outcome string) {
	m.OutputVerdicts.WithLabelValues(outcome).Inc()
}

// RecordGeneration records a generation call.
func (m *Metrics) RecordGeneration(result string, duration time.Duration) {
	m.GenerationRequests.WithLabelValues(result).Inc()
	m.GenerationLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordIsolationViolation records an ownership mismatch.
func (m *Metrics) RecordIsolationViolation() {
	m.IsolationViolations.Inc()
}

// RecordAuditFailure records a failed audit write.
func (m *Metrics) RecordAuditFailure(sink string) {
	m.AuditWriteFailures.WithLabelValues(sink).Inc()
}
