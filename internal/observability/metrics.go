package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "identd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the management API.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "identd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Management API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	identityFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "identd",
			Subsystem: "identity",
			Name:      "fetch_total",
			Help:      "Node identifier fetches issued against an agent.",
		},
		[]string{"target", "outcome"},
	)
	identityFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "identd",
			Subsystem: "identity",
			Name:      "fetch_duration_seconds",
			Help:      "Node identifier fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, identityFetches, identityFetchDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordIdentityFetch(target string, success bool, duration time.Duration) {
	RegisterMetrics()
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	identityFetches.WithLabelValues(target, outcome).Inc()
	identityFetchDuration.WithLabelValues(target, outcome).Observe(duration.Seconds())
}
