package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every metric name.
const Namespace = "switchboard"

// Collector owns the metric registry and the per-concern metric groups.
type Collector struct {
	registry *prometheus.Registry

	// Requests tracks HTTP request counts and latency.
	Requests *RequestMetrics

	// Sessions tracks the session directory and turn outcomes.
	Sessions *SessionMetrics
}

// NewCollector creates a collector with a private registry, pre-registering
// the Go runtime and process collectors alongside the proxy's own metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry: registry,
		Requests: NewRequestMetrics(registry),
		Sessions: NewSessionMetrics(registry),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
