package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels fully successful operations.
	OutcomeSuccess = "success"
	// OutcomePartial labels analyses that completed with keyword failures.
	OutcomePartial = "partial"
	// OutcomeCancelled labels analyses cut short by cancellation.
	OutcomeCancelled = "cancelled"
	// OutcomeError labels failed operations.
	OutcomeError = "error"
)

var (
	fetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trends_analyzer",
			Name:      "fetch_attempts_total",
			Help:      "Upstream fetch attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	fetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trends_analyzer",
			Name:      "fetch_retries_total",
			Help:      "Fetch attempts beyond the first for any sub-batch.",
		},
	)

	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trends_analyzer",
			Name:      "cache_events_total",
			Help:      "Series cache lookups, partitioned by hit or miss.",
		},
		[]string{"event"},
	)

	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trends_analyzer",
			Name:      "analyses_total",
			Help:      "Analysis runs handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trends_analyzer",
			Name:      "analysis_seconds",
			Help:      "End-to-end analysis latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)
)

// Register attaches the analyzer collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		fetchAttemptsTotal,
		fetchRetriesTotal,
		cacheEventsTotal,
		analysesTotal,
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

// ObserveFetchAttempt records one upstream attempt and whether it succeeded.
func ObserveFetchAttempt(success bool) {
	label := OutcomeError
	if success {
		label = OutcomeSuccess
	}
	fetchAttemptsTotal.WithLabelValues(label).Inc()
}

// ObserveFetchRetry counts an attempt made after a transient failure.
func ObserveFetchRetry() {
	fetchRetriesTotal.Inc()
}

// ObserveCacheLookup records a cache hit or miss for a sub-batch fetch.
func ObserveCacheLookup(hit bool) {
	event := "miss"
	if hit {
		event = "hit"
	}
	cacheEventsTotal.WithLabelValues(event).Inc()
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomePartial, OutcomeCancelled, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}
