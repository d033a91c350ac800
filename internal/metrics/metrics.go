package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels upstream calls and analyses that completed.
	OutcomeSuccess = "success"
	// OutcomeNotFound labels definitive not-found upstream responses.
	OutcomeNotFound = "not_found"
	// OutcomeError labels failed upstream calls and analyses.
	OutcomeError = "error"
)

var (
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registry_risk",
			Name:      "upstream_requests_total",
			Help:      "Registry API calls, partitioned by resource and outcome.",
		},
		[]string{"resource", "outcome"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registry_risk",
			Name:      "cache_lookups_total",
			Help:      "Registry response cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)

	rateLimitWaitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "registry_risk",
			Name:      "rate_limit_waits_total",
			Help:      "Times a registry call backed off on an overloaded upstream.",
		},
	)

	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registry_risk",
			Name:      "analyses_total",
			Help:      "Company analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	dimensionRatingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registry_risk",
			Name:      "dimension_ratings_total",
			Help:      "Dimension results produced, partitioned by dimension and rating.",
		},
		[]string{"dimension", "rating"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "registry_risk",
			Name:      "analysis_seconds",
			Help:      "Full company analysis latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)
)

// Register attaches registry-risk collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		upstreamRequestsTotal,
		cacheLookupsTotal,
		rateLimitWaitsTotal,
		analysesTotal,
		dimensionRatingsTotal,
		analysisDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveUpstreamRequest records one registry API call by resource and outcome.
func ObserveUpstreamRequest(resource, outcome string) {
	upstreamRequestsTotal.WithLabelValues(resource, outcome).Inc()
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimitWait records one backoff forced by an upstream 429.
func ObserveRateLimitWait() {
	rateLimitWaitsTotal.Inc()
}

// ObserveAnalysis records a full analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveDimensionRating records the rating a single dimension produced.
func ObserveDimensionRating(dimension, rating string) {
	dimensionRatingsTotal.WithLabelValues(dimension, rating).Inc()
}
