package metrics

import "github.com/prometheus/client_golang/prometheus"

// Language-model provider and answer-cache Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tubeask",
			Name:      "provider_requests_total",
			Help:      "Total number of language-model requests",
		},
		[]string{"model", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tubeask",
			Name:      "provider_request_duration_seconds",
			Help:      "Language-model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"model"},
	)

	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tubeask",
			Name:      "provider_errors_total",
			Help:      "Total language-model errors",
		},
		[]string{"model", "error_type"},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tubeask",
			Name:      "answers_total",
			Help:      "Answers returned, by outcome",
		},
		[]string{"channel", "outcome"}, // "answered" / "no_match" / "fallback"
	)

	AnswerCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tubeask",
			Name:      "answer_cache_total",
			Help:      "Answer cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var providerMetricsRegistered bool

// RegisterProviderMetrics registers Prometheus provider metrics. Must be called once from main.
func RegisterProviderMetrics() {
	if providerMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderErrorsTotal)
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(AnswerCacheTotal)
	providerMetricsRegistered = true
}
