// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus instrumentation for the archival
// pipeline: per-component fetch latency and error counts, quota governor
// waits, checkpoint commits, and circuit breaker state for the data-API
// backend. Metrics are registered at init time via promauto and exposed
// only when internal/statusserver is enabled — collecting them costs
// nothing when the status surface is off.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VideosProcessedTotal counts videos that completed the per-video
	// pipeline (successfully or with a recorded per-component error),
	// labeled by source URL.
	VideosProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_videos_processed_total",
			Help: "Total number of videos that completed the per-video archival pipeline.",
		},
		[]string{"source"},
	)

	// ComponentFetchDuration times a single component fetch (metadata,
	// thumbnail, captions, comments, video).
	ComponentFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_component_fetch_duration_seconds",
			Help:    "Duration of a single per-video component fetch.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component"},
	)

	// ComponentFetchErrors counts component fetch failures, labeled by
	// component and the retry package's error-kind classification.
	ComponentFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_component_fetch_errors_total",
			Help: "Total number of component fetch failures by component and error kind.",
		},
		[]string{"component", "error_kind"},
	)

	// QuotaGovernorWaitsTotal counts the number of times the Quota
	// Governor entered its wall-clock wait loop.
	QuotaGovernorWaitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_governor_waits_total",
			Help: "Total number of times the quota governor suspended a call to wait for reset.",
		},
	)

	// QuotaGovernorWaitSeconds accumulates wall-clock time spent waiting
	// for a quota reset.
	QuotaGovernorWaitSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_governor_wait_seconds",
			Help: "Cumulative seconds spent waiting for a quota reset.",
		},
	)

	// CheckpointCommitsTotal counts checkpoint commits, labeled by source.
	CheckpointCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkpoint_commits_total",
			Help: "Total number of checkpoint commits performed, labeled by source.",
		},
		[]string{"source"},
	)

	// CircuitBreakerState reports 0=closed, 1=open, 2=half-open for a
	// named circuit breaker (the data-API backend's).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=open, 2=half-open.",
		},
		[]string{"name"},
	)

	// CircuitBreakerRequests counts requests through a circuit breaker,
	// labeled by outcome (success, failure, quota-exhausted); a call the
	// open breaker rejects counts as failure.
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests observed by a circuit breaker, labeled by outcome.",
		},
		[]string{"name", "outcome"},
	)

	// CircuitBreakerTransitions counts circuit breaker state transitions.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions, labeled by from/to state.",
		},
		[]string{"name", "from", "to"},
	)

	// EnumeratorFallbacksTotal counts facade operations that fell back
	// from the data-API backend to the extractor backend.
	EnumeratorFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enumerator_fallbacks_total",
			Help: "Total facade operations that fell back from the data-API backend to the extractor.",
		},
		[]string{"operation"},
	)
)

// ObserveComponentFetch records the duration of a component fetch and, if
// errKind is non-empty, increments the error counter with its
// classification.
func ObserveComponentFetch(component string, d time.Duration, errKind string) {
	ComponentFetchDuration.WithLabelValues(component).Observe(d.Seconds())
	if errKind != "" {
		ComponentFetchErrors.WithLabelValues(component, errKind).Inc()
	}
}
