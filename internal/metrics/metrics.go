// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes used as label values.
const (
	OutcomeAccepted       = "accepted"
	OutcomeRejected       = "rejected"
	OutcomeRateLimited    = "rate_limited"
	OutcomeArchiveFailed  = "archive_failed"
	OutcomeFrontierFailed = "frontier_failed"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlhub_submissions_total",
			Help: "Total number of batch submissions, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	archivedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crawlhub_archived_bytes_total",
			Help: "Total compressed bytes written to the batch archive.",
		},
	)

	archivedItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crawlhub_archived_items_total",
			Help: "Total number of crawled items written to the batch archive.",
		},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crawlhub_rate_limited_total",
			Help: "Total number of submissions rejected by the per-owner rate limiter.",
		},
	)

	frontierURLsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlhub_frontier_urls_total",
			Help: "Total number of URLs upserted into the frontier, labeled by operation.",
		},
		[]string{"operation"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSubmission counts one submission with its outcome.
func ObserveSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveArchive records the size of one archived batch.
func ObserveArchive(compressedBytes, items int) {
	archivedBytesTotal.Add(float64(compressedBytes))
	archivedItemsTotal.Add(float64(items))
}

// ObserveRateLimited counts one throttled submission.
func ObserveRateLimited() {
	rateLimitedTotal.Inc()
}

// ObserveFrontier counts URLs passed to a frontier operation.
func ObserveFrontier(operation string, urls int) {
	if urls > 0 {
		frontierURLsTotal.WithLabelValues(operation).Add(float64(urls))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
