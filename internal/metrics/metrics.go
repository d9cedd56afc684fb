// Package metrics exposes Prometheus counters and histograms fed by bus
// events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/fetchgraph/internal/eventbus"
	events "github.com/hanpama/fetchgraph/internal/events"
)

const namespace = "fetchgraph"

// Collector owns the metric vectors and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	requests           *prometheus.CounterVec
	operations         *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	downstreamCalls    *prometheus.CounterVec
	downstreamDuration *prometheus.HistogramVec
}

// New creates a Collector with its own registry, including Go runtime and
// process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "GraphQL HTTP requests served, by method and status.",
		}, []string{"method", "status"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Executed GraphQL operations, by type and outcome.",
		}, []string{"type", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "GraphQL operation execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		downstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downstream_requests_total",
			Help:      "Downstream calls, by directive, field and status class.",
		}, []string{"directive", "field", "status"}),
		downstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "downstream_duration_seconds",
			Help:      "Downstream call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"directive", "field"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests,
		c.operations,
		c.operationDuration,
		c.downstreamCalls,
		c.downstreamDuration,
	)
	return c
}

// Registry returns the registry metrics are exported from.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Register subscribes the collector on the global bus.
func (c *Collector) Register() (unregister func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.RequestServed) {
			c.requests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.OperationFinish) {
			outcome := "ok"
			if e.Errors > 0 {
				outcome = "error"
			}
			c.operations.WithLabelValues(e.OperationType, outcome).Inc()
			c.operationDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.DownstreamFinish) {
			c.downstreamCalls.WithLabelValues(e.Directive, e.Field, statusClass(e.Status, e.Err)).Inc()
			c.downstreamDuration.WithLabelValues(e.Directive, e.Field).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func statusClass(status int, err error) string {
	if status == 0 {
		if err != nil {
			return "error"
		}
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
