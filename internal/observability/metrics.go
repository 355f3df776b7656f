package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeweb_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// BackendRequestLatency records backend API latency by operation and status code.
	BackendRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vibeweb_backend_request_latency_seconds",
		Help:    "Backend REST call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	// FeedPageFetches counts feed page fetches by feed kind and outcome.
	FeedPageFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeweb_feed_page_fetches_total",
		Help: "Total feed page fetches by kind and outcome",
	}, []string{"kind", "outcome"})

	// ActiveFeeds is the gauge of feed controllers currently held for browser sessions.
	ActiveFeeds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibeweb_active_feeds",
		Help: "Number of feed controllers held in memory",
	})

	// FollowToggles counts follow toggles by outcome.
	FollowToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeweb_follow_toggles_total",
		Help: "Total follow toggles by outcome",
	}, []string{"outcome"})
)

// Feed fetch outcomes.
const (
	OutcomeFull      = "full"
	OutcomeShort     = "short"
	OutcomeError     = "error"
	OutcomeStale     = "stale"
	OutcomeOK        = "ok"
	OutcomeRollback  = "rollback"
	OutcomeReconcile = "reconciled"
)

// TrackBackend returns a function that records call latency when called (e.g. defer)
// with the resulting status code, 0 meaning no response.
func TrackBackend(operation string) func(status int) {
	start := time.Now()
	return func(status int) {
		BackendRequestLatency.WithLabelValues(operation, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	}
}
