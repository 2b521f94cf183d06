package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flow"

// Metrics holds the collectors exported by the runtime.
type Metrics struct {
	registry *prometheus.Registry

	graphInits      *prometheus.CounterVec
	graphShutdowns  *prometheus.CounterVec
	activeScopes    prometheus.Gauge
	nodeInstalls    *prometheus.CounterVec
	signals         *prometheus.CounterVec
	triggerDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		graphInits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_initializations_total",
				Help:      "Total number of graph initializations by result",
			},
			[]string{"graph", "result"},
		),
		graphShutdowns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_shutdowns_total",
				Help:      "Total number of graph shutdowns by result",
			},
			[]string{"graph", "result"},
		),
		activeScopes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_scopes",
				Help:      "Number of initialized scopes not yet shut down",
			},
		),
		nodeInstalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_installs_total",
				Help:      "Total number of node installs by kind and implementation",
			},
			[]string{"kind", "implementation"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Total number of control emissions by result",
			},
			[]string{"result"},
		),
		triggerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trigger_duration_seconds",
				Help:      "Duration of externally triggered control chains",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"graph", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of management API requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of management API requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.graphInits,
		m.graphShutdowns,
		m.activeScopes,
		m.nodeInstalls,
		m.signals,
		m.triggerDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry (for extra collectors or tests).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGraphInitialize: func(_ context.Context, e *domain.GraphEvent) {
			m.graphInits.WithLabelValues(e.GraphName, result(e.Err)).Inc()
			if e.Err == nil {
				m.activeScopes.Inc()
			}
		},
		OnGraphShutdown: func(_ context.Context, e *domain.GraphEvent) {
			m.graphShutdowns.WithLabelValues(e.GraphName, result(e.Err)).Inc()
			m.activeScopes.Dec()
		},
		OnNodeInstall: func(_ context.Context, e *domain.NodeEvent) {
			impl := e.Implementation
			if impl == "" {
				impl = "builtin"
			}
			m.nodeInstalls.WithLabelValues(e.NodeKind, impl).Inc()
		},
		OnSignal: func(_ context.Context, e *domain.SignalEvent) {
			m.signals.WithLabelValues(result(e.Err)).Inc()
		},
	}
}

// ObserveTrigger records the duration of a trigger that started at start.
func (m *Metrics) ObserveTrigger(graph string, start time.Time, err error) {
	m.triggerDuration.WithLabelValues(graph, result(err)).Observe(time.Since(start).Seconds())
}

// Middleware records request counts and durations, labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
