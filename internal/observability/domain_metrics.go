package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartsql_http_requests_total",
			Help: "Total number of API requests by route pattern and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chartsql_http_request_duration_seconds",
			Help: "API request latency by route pattern. Chat messages include model and query time.",
			// Chat requests span one or more model calls, so the upper buckets reach past a minute.
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"method", "path", "status"},
	)
	pipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartsql_pipeline_outcomes_total",
			Help: "Total number of processed chat messages by terminal outcome.",
		},
		[]string{"outcome"},
	)
	modelInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartsql_model_invocations_total",
			Help: "Total number of model invocations by path and result.",
		},
		[]string{"path", "result"},
	)
	modelLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartsql_model_latency_ms",
			Help:    "Model invocation latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 20000, 40000, 60000},
		},
		[]string{"path"},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartsql_query_executions_total",
			Help: "Total number of generated SQL executions by result.",
		},
		[]string{"result"},
	)
	queryLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chartsql_query_latency_ms",
			Help:    "Generated SQL execution latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)
	authFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartsql_auth_failures_total",
			Help: "Total number of rejected API requests by reason.",
		},
		[]string{"reason"},
	)
	fallbackAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chartsql_fallback_attempts_total",
			Help: "Total number of fallback model attempts made after a failed query.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		pipelineOutcomesTotal,
		modelInvocationsTotal,
		modelLatencyMs,
		queryExecutionsTotal,
		queryLatencyMs,
		fallbackAttemptsTotal,
		authFailuresTotal,
	)
}

func IncrementPipelineOutcome(outcome string) {
	pipelineOutcomesTotal.WithLabelValues(outcome).Inc()
}

func ObserveModelInvocation(path string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	modelInvocationsTotal.WithLabelValues(path, result).Inc()
	modelLatencyMs.WithLabelValues(path).Observe(float64(elapsed.Milliseconds()))
}

func ObserveQueryExecution(err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	queryExecutionsTotal.WithLabelValues(result).Inc()
	queryLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func IncrementFallbackAttempt() {
	fallbackAttemptsTotal.Inc()
}

// IncrementAuthFailure counts a rejected request; reason is missing_key or invalid_key.
func IncrementAuthFailure(reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
}
