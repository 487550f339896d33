package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Symbol outcomes besides the failure kinds from model.FailureKind.
const (
	OutcomeMatched  = "matched"
	OutcomeRejected = "rejected"
)

// Cache request results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	scansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcp_scans_total",
		Help: "Number of completed VCP scans",
	})

	symbolsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcp_symbols_total",
			Help: "Symbols processed by outcome (matched, rejected or failure kind)",
		},
		[]string{"outcome"},
	)

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vcp_scan_duration_seconds",
		Help:    "Wall time of a full scan",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vcp_fetch_duration_seconds",
			Help:    "Latency of historical data fetches by source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	cacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcp_cache_requests_total",
			Help: "Series cache lookups by result",
		},
		[]string{"result"},
	)
)

// ObserveScan records one finished scan.
func ObserveScan(d time.Duration) {
	scansTotal.Inc()
	scanDuration.Observe(d.Seconds())
}

// ObserveSymbol records the outcome for one symbol.
func ObserveSymbol(outcome string) {
	symbolsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records one provider fetch.
func ObserveFetch(source string, d time.Duration) {
	fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveCache records one cache lookup.
func ObserveCache(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}
