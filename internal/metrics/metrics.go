// Package metrics wires github.com/prometheus/client_golang the way
// hamzaKhattat-ara-production-system/internal/metrics.PrometheusMetrics
// does (named counters/gauges registered up front, exposed over
// promhttp), sized down to the handful of signals C2's Engine emits:
// open connections and per-statement outcomes by command tag and
// SQLSTATE class.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alex-dukhno/pgcore/pgerr"
)

// Collector implements internal/server.Metrics on top of a dedicated
// prometheus.Registry, so multiple pgcored instances in one process
// (as in tests) don't collide on the global default registry.
type Collector struct {
	registry      *prometheus.Registry
	connsOpen     prometheus.Gauge
	connsTotal    prometheus.Counter
	queriesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

// New registers and returns a fresh Collector.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		connsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pgcore_connections_open",
			Help: "Current number of established client connections.",
		}),
		connsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgcore_connections_total",
			Help: "Total connections accepted since startup.",
		}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pgcore_statements_total",
			Help: "Total statements completed, labeled by command tag.",
		}, []string{"tag"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pgcore_statement_errors_total",
			Help: "Total statement errors, labeled by SQLSTATE class.",
		}, []string{"sqlstate_class"}),
	}
	c.registry.MustRegister(c.connsOpen, c.connsTotal, c.queriesTotal, c.errorsTotal)
	return c
}

// ConnOpened implements internal/server.Metrics.
func (c *Collector) ConnOpened() {
	c.connsOpen.Inc()
	c.connsTotal.Inc()
}

// ConnClosed implements internal/server.Metrics.
func (c *Collector) ConnClosed() {
	c.connsOpen.Dec()
}

// QueryHandled implements internal/server.Metrics. err, when present,
// is classified by its SQLSTATE class (the first two characters of
// the 5-character code) rather than the full code, keeping cardinality
// bounded the way a production deployment needs.
func (c *Collector) QueryHandled(tag string, err error) {
	if tag != "" {
		c.queriesTotal.WithLabelValues(tag).Inc()
	}
	if err == nil {
		return
	}
	class := "XX"
	if pe, ok := pgerr.As(err); ok {
		state := pe.SQLState()
		if len(state) >= 2 {
			class = state[:2]
		}
	}
	c.errorsTotal.WithLabelValues(class).Inc()
}

// Handler returns the promhttp handler serving this Collector's
// registry, to be mounted at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
