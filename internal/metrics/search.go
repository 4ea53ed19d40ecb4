package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loomindex",
			Name:      "search_requests_total",
			Help:      "Total number of search pipeline invocations",
		},
		[]string{"expanded"}, // "true" / "false"
	)

	SearchExpansionFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "loomindex",
			Name:      "search_expansion_fanout",
			Help:      "Number of query variants scored per search",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 25, 50},
		},
	)

	SearchEnrichmentFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loomindex",
			Name:      "search_enrichment_failures_total",
			Help:      "Searches that degraded to empty related items due to a graph failure",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchExpansionFanout)
	prometheus.MustRegister(SearchEnrichmentFailures)
	searchMetricsRegistered = true
}
