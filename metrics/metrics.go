// Package metrics exposes the registry's Prometheus metrics on a dedicated
// HTTP listener.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/interfaces"
)

// MetricsServer owns a private Prometheus registry and the HTTP server that
// serves it on /metrics.
type MetricsServer struct {
	registry *prometheus.Registry
	srv      *http.Server

	operations  *prometheus.CounterVec
	events      *prometheus.CounterVec
	checkpoints *prometheus.CounterVec
	rateLimited prometheus.Counter
	opDurations *prometheus.HistogramVec
}

// New creates the metrics registry. namespace is derived from the package
// name, for example "identity_registry".
func New(packageName, listenAddr string) (*MetricsServer, error) {
	namespace := sanitizeNamespace(packageName)
	reg := prometheus.NewRegistry()

	m := &MetricsServer{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Registry operations by name and result code.",
		}, []string{"operation", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Emitted registry events by name.",
		}, []string{"event"}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "State checkpoints by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-caller rate limit.",
		}),
		opDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Registry operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{
		m.operations,
		m.events,
		m.checkpoints,
		m.rateLimited,
		m.opDurations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.srv = &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsServer) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// ObserveOperation records the outcome of one registry operation. Registry
// errors are labelled with their code, other errors with "error".
func (m *MetricsServer) ObserveOperation(operation string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = interfaces.CodeOf(err)
		if result == "" {
			result = "error"
		}
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.opDurations.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *MetricsServer) ObserveCheckpoint(err error) {
	if err != nil {
		m.checkpoints.WithLabelValues("error").Inc()
		return
	}
	m.checkpoints.WithLabelValues("ok").Inc()
}

func (m *MetricsServer) ObserveRateLimited() {
	m.rateLimited.Inc()
}

// Emit counts events, so the server can be plugged into the event fan-out.
func (m *MetricsServer) Emit(ev events.Event) {
	m.events.WithLabelValues(ev.EventName()).Inc()
}

func sanitizeNamespace(packageName string) string {
	name := packageName
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
