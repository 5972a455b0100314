package server

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
			Namespace: "chef",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chef",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	imageCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chef",
			Subsystem: "image_cache",
			Name:      "lookups_total",
			Help:      "Step image cache lookups by result.",
		},
		[]string{"result"},
	)
	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chef",
			Subsystem: "llm",
			Name:      "generations_total",
			Help:      "Recipe and image generations by kind and outcome.",
		},
		[]string{"kind", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, imageCacheLookups, generations)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func recordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	imageCacheLookups.WithLabelValues(result).Inc()
}

func recordGeneration(kind string, err error) {
	generations.WithLabelValues(kind, strconv.FormatBool(err == nil)).Inc()
}
