package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossply_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crossply_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	publishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossply_publish_attempts_total",
		Help: "Count of per-target publish attempts by platform and result",
	}, []string{"platform", "result"})

	publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crossply_publish_duration_seconds",
		Help:    "Duration of per-target publish attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	sweepClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossply_sweep_claimed_posts_total",
		Help: "Count of scheduled posts claimed and enqueued by the sweep",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossply_publish_queue_depth",
		Help: "Jobs waiting in the publish queue",
	})

	inboundItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossply_inbound_items_total",
		Help: "Count of ingested inbound items by platform and outcome",
	}, []string{"platform", "outcome"})

	tokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossply_token_refreshes_total",
		Help: "Count of access token refresh attempts",
	}, []string{"platform", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObservePublish records a per-target publish attempt
func ObservePublish(platform, result string, duration time.Duration) {
	publishAttempts.WithLabelValues(platform, result).Inc()
	publishDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

// ObserveSweep records how many posts one sweep pass claimed
func ObserveSweep(claimed int) {
	sweepClaimed.Add(float64(claimed))
}

// SetQueueDepth records the current publish queue depth
func SetQueueDepth(depth int64) {
	queueDepth.Set(float64(depth))
}

// ObserveInbound records one ingested inbound item
func ObserveInbound(platform, outcome string) {
	inboundItems.WithLabelValues(platform, outcome).Inc()
}

// ObserveTokenRefresh records a token refresh attempt
func ObserveTokenRefresh(platform, result string) {
	tokenRefreshes.WithLabelValues(platform, result).Inc()
}
