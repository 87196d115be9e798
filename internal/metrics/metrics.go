// Package metrics provides Prometheus metrics for Conduit calls and report cycles.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeAPIError  = "api_error"
	OutcomeTransport = "transport_error"
	OutcomeDecode    = "decode_error"
	OutcomeConfig    = "config_error"
)

// Collector owns a registry and the metrics registered on it.
type Collector struct {
	registry *prometheus.Registry

	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	cycles        *prometheus.CounterVec
	tasksReported prometheus.Counter
	lastCycle     prometheus.Gauge
}

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Name:      "calls_total",
				Help:      "Conduit calls by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "conduit",
				Name:      "call_duration_seconds",
				Help:      "Conduit call duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Subsystem: "onsub",
				Name:      "cycles_total",
				Help:      "Task report cycles by result.",
			},
			[]string{"result"},
		),
		tasksReported: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Subsystem: "onsub",
				Name:      "tasks_reported_total",
				Help:      "Tasks posted to the chat thread.",
			},
		),
		lastCycle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "conduit",
				Subsystem: "onsub",
				Name:      "last_cycle_timestamp_seconds",
				Help:      "Unix time of the last finished report cycle.",
			},
		),
	}
	c.registry.MustRegister(c.calls, c.callDuration, c.cycles, c.tasksReported, c.lastCycle)
	return c
}

// ObserveCall records one Conduit call.
func (c *Collector) ObserveCall(method, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.calls.WithLabelValues(method, outcome).Inc()
	c.callDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveCycle records one report cycle and how many tasks it posted.
func (c *Collector) ObserveCycle(err error, reported int, finished time.Time) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.cycles.WithLabelValues(result).Inc()
	c.tasksReported.Add(float64(reported))
	c.lastCycle.Set(float64(finished.Unix()))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
