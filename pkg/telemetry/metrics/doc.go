// Package metrics exposes Prometheus metrics for the rendezvous proxy.
//
// A Collector owns a private registry and the per-concern metric groups:
// HTTP request counts and latency, session directory gauges, and turn
// outcome counters. The /metrics endpoint serves the registry through
// promhttp and is gated by configuration.
package metrics
