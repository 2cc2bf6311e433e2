// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for the adapter-facing API.
// Labels are kept to (method, path, status) with path bound to the
// registered Gin route so cardinality stays flat.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// apiReqs counts requests by method, route path, and status code.
	apiReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cunao_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// apiLat records request duration in seconds by method and route path.
	// Status is omitted to keep histogram cardinality lower.
	apiLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cunao_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// apiInflight gauges the number of currently processing requests.
	apiInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cunao_http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(apiReqs, apiLat, apiInflight)
}

// Metrics returns a Gin middleware that instruments requests with
// Prometheus. Pair it with a /metrics route serving promhttp.Handler().
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		apiInflight.Inc()
		defer apiInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			// no route matched (404); fall back to the raw path
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		apiReqs.WithLabelValues(method, path, status).Inc()
		apiLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
