package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks HTTP request processing.
//
// Metrics:
//   - switchboard_http_requests_total: request count by path and status
//   - switchboard_http_request_duration_seconds: latency histogram by path
//   - switchboard_http_requests_in_flight: concurrently handled requests
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewRequestMetrics creates and registers request metrics with the registry.
func NewRequestMetrics(registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"path", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				// Turn requests long-poll, so the buckets reach well past
				// typical web latencies.
				Buckets: []float64{0.005, 0.05, 0.25, 1, 5, 15, 30, 60, 120},
			},
			[]string{"path"},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being handled",
			},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration, rm.inFlight)
	return rm
}

// RecordRequest records one completed request.
func (rm *RequestMetrics) RecordRequest(path string, status int, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// IncInFlight marks a request as started.
func (rm *RequestMetrics) IncInFlight() { rm.inFlight.Inc() }

// DecInFlight marks a request as finished.
func (rm *RequestMetrics) DecInFlight() { rm.inFlight.Dec() }
