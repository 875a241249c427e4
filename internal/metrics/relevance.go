package metrics

import "github.com/prometheus/client_golang/prometheus"

// Relevance and search Prometheus metrics.
var (
	RelevanceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cafematch",
			Name:      "relevance_requests_total",
			Help:      "Total number of relevance scoring requests",
		},
		[]string{"source", "status"},
	)

	RelevanceRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cafematch",
			Name:      "relevance_request_duration_seconds",
			Help:      "Remote relevance request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	RelevanceFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cafematch",
			Name:      "relevance_fallback_total",
			Help:      "Searches answered by the local heuristic, by reason",
		},
		[]string{"reason"}, // forced / malformed / unavailable / missing_credential
	)

	RelevanceCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cafematch",
			Name:      "relevance_cache_total",
			Help:      "Relevance cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cafematch",
			Name:      "search_evaluations_total",
			Help:      "Completed search evaluations by outcome",
		},
		[]string{"outcome"}, // applied / superseded / error
	)

	SearchSupersededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cafematch",
			Name:      "search_superseded_total",
			Help:      "Search results or errors discarded because a newer search was issued",
		},
	)
)

var relevanceMetricsRegistered bool

// RegisterRelevanceMetrics registers relevance and search metrics. Must be called once from main.
func RegisterRelevanceMetrics() {
	if relevanceMetricsRegistered {
		return
	}
	prometheus.MustRegister(RelevanceRequestsTotal)
	prometheus.MustRegister(RelevanceRequestDuration)
	prometheus.MustRegister(RelevanceFallbackTotal)
	prometheus.MustRegister(RelevanceCacheTotal)
	prometheus.MustRegister(SearchEvaluationsTotal)
	prometheus.MustRegister(SearchSupersededTotal)
	relevanceMetricsRegistered = true
}
