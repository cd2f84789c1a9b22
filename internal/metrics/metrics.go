// Package metrics exports store and HTTP instrumentation in Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/domain"
)

const namespace = "metier"

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	registry    *prometheus.Registry
	storeOps    *prometheus.CounterVec
	storeTime   *prometheus.HistogramVec
	loads       *prometheus.CounterVec
	degraded    *prometheus.CounterVec
	httpTime    *prometheus.HistogramVec
	httpActive  prometheus.Gauge
	loadedAtSec prometheus.Gauge
}

// New registers every collector, including the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "operations_total",
			Help: "Entity store operations by operation, collection and outcome.",
		}, []string{"op", "collection", "outcome"}),
		storeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "store", Name: "operation_seconds",
			Help:    "Entity store operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "collection"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshot_loads_total",
			Help: "Snapshot loads by source (store, cache, seed).",
		}, []string{"source"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "mutations_not_persisted_total",
			Help: "Mutations kept in memory only because a store write failed.",
		}, []string{"collection"}),
		httpTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "active_requests",
			Help: "HTTP requests currently being served.",
		}),
		loadedAtSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "snapshot_loaded_timestamp_seconds",
			Help: "Unix time of the last successful snapshot load.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeOps, m.storeTime, m.loads, m.degraded, m.httpTime, m.httpActive, m.loadedAtSec,
	)
	return m
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// StoreOperation implements app.Observer.
func (m *Metrics) StoreOperation(op string, c domain.Collection, elapsed time.Duration, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, app.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	m.storeOps.WithLabelValues(op, string(c), outcome).Inc()
	m.storeTime.WithLabelValues(op, string(c)).Observe(elapsed.Seconds())
}

// Loaded implements app.Observer.
func (m *Metrics) Loaded(src app.LoadSource) {
	m.loads.WithLabelValues(string(src)).Inc()
	if src == app.SourceStore {
		m.loadedAtSec.SetToCurrentTime()
	}
}

// Degraded implements app.Observer.
func (m *Metrics) Degraded(c domain.Collection) {
	m.degraded.WithLabelValues(string(c)).Inc()
}

// Middleware records latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpActive.Inc()
		defer func() {
			m.httpActive.Dec()
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			m.httpTime.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())
		}()
		c.Next()
	}
}

var _ app.Observer = (*Metrics)(nil)
