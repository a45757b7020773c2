// Package metrics exposes Prometheus counters for the HTTP surface and the
// pipeline execution path. Everything registers on the default registry and
// is served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptdeck_http_request_duration_milliseconds",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"method", "path"},
	)
	PipelineExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_pipeline_executions_total",
			Help: "Total number of pipeline executions",
		},
		[]string{"status"},
	)
	RunsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promptdeck_runs_recorded_total",
			Help: "Total number of prompt runs recorded",
		},
	)
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PipelineExecutions)
	prometheus.MustRegister(RunsRecorded)
	prometheus.MustRegister(WebhookDeliveries)
}

// ObserveRequest records one handled request. The path label is the route
// pattern, not the raw URL, so cardinality stays bounded.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(float64(duration.Milliseconds()))
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
