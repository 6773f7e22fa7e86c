// Package metrics registers the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "soundshelf"

var (
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Total number of applied votes",
		},
		[]string{"direction"}, // "up", "down"
	)

	ThresholdDeletionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threshold_deletions_total",
			Help:      "Total number of recommendations removed after falling below the score threshold",
		},
	)

	RandomPicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "random_picks_total",
			Help:      "Total number of weighted random picks by served bucket",
		},
		[]string{"bucket", "fallback"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordVote counts an applied vote. direction is "up" or "down".
func RecordVote(direction string) {
	VotesTotal.WithLabelValues(direction).Inc()
}

// RecordThresholdDeletion counts a recommendation removed by a downvote.
func RecordThresholdDeletion() {
	ThresholdDeletionsTotal.Inc()
}

// RecordRandomPick counts a served random pick.
func RecordRandomPick(bucket string, fallback bool) {
	RandomPicksTotal.WithLabelValues(bucket, strconv.FormatBool(fallback)).Inc()
}

// RecordHTTPRequest records request count and latency.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
