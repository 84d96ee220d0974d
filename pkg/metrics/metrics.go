// Package metrics records dispatch outcomes as Prometheus metrics and serves
// them on /metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/fred-gateway/pkg/events"
)

const namespace = "fred_gateway"

// Collector owns a private Prometheus registry so several collectors can
// coexist in one process (tests, embedded servers).
type Collector struct {
	registry   *prometheus.Registry
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCollector creates a Collector with the Go runtime and process collectors
// registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Dispatched requests by operation, transport and outcome.",
		}, []string{"operation", "transport", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Dispatch latency by operation, including the upstream call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	c.registry.MustRegister(
		c.dispatches,
		c.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// PublishDispatched implements events.EventPublisher.
func (c *Collector) PublishDispatched(_ context.Context, e *events.DispatchEvent) error {
	c.dispatches.WithLabelValues(e.Operation, e.Transport, e.Outcome).Inc()
	c.duration.WithLabelValues(e.Operation).Observe(float64(e.DurationMs) / 1000)
	return nil
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
