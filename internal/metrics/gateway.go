package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quota decision label values.
const (
	DecisionAllowed         = "allowed"
	DecisionQuotaExceeded   = "quota_exceeded"
	DecisionFeatureDisabled = "feature_unavailable"
	DecisionFailOpen        = "fail_open"
)

// Gateway Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of model provider requests",
		},
		[]string{"operation", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Model provider request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"operation", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total tokens consumed at the model provider",
		},
		[]string{"model", "type"},
	)

	LLMErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_errors_total",
			Help:      "Total model provider errors",
		},
		[]string{"operation", "model", "error_type"},
	)

	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota gate decisions",
		},
		[]string{"tier", "kind", "decision"},
	)

	EstimatedCostTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimated_cost_total",
			Help:      "Estimated provider cost of accepted requests, in currency units",
		},
		[]string{"tier", "kind"},
	)

	UsageTrackingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_tracking_errors_total",
			Help:      "Usage store faults swallowed by the quota gate",
		},
	)
)

var gatewayMetricsRegistered bool

// RegisterGatewayMetrics registers the gateway metrics. Must be called once from main.
func RegisterGatewayMetrics() {
	if gatewayMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		LLMRequestsTotal,
		LLMRequestDuration,
		LLMTokensTotal,
		LLMErrorsTotal,
		QuotaDecisionsTotal,
		EstimatedCostTotal,
		UsageTrackingErrorsTotal,
	)
	gatewayMetricsRegistered = true
}
