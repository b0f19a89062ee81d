package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the request and workflow collectors of one server
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	aiFailures   *prometheus.CounterVec
	pullRequests *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testgen",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "testgen",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"route"}),
		aiFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testgen",
			Name:      "ai_failures_total",
			Help:      "Failed AI generations by operation and status",
		}, []string{"operation", "status"}),
		pullRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testgen",
			Name:      "pull_requests_total",
			Help:      "Raised pull requests by outcome",
		}, []string{"outcome"}),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) aiFailed(operation string, status int) {
	m.aiFailures.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

func (m *Metrics) prRaised(outcome string) {
	m.pullRequests.WithLabelValues(outcome).Inc()
}
