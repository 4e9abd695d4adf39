// Package metrics exposes Prometheus metrics of the registry server on a
// dedicated listener.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/weighted-membership-registry/interfaces"
)

// Metrics holds the collectors of one server instance.
type Metrics struct {
	registry   *prometheus.Registry
	events     *prometheus.CounterVec
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	registries prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_events_total",
			Help:      "Membership events committed, by kind.",
		}, []string{"kind"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "API operations, by operation and response status.",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "API operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		registries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hosted_registries",
			Help:      "Number of registries hosted by this server.",
		}),
	}

	m.registry.MustRegister(
		m.events,
		m.operations,
		m.latency,
		m.registries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation records one API call.
func (m *Metrics) ObserveOperation(operation string, status int, took time.Duration) {
	m.operations.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(operation).Observe(took.Seconds())
}

// SetRegistries sets the hosted registry gauge.
func (m *Metrics) SetRegistries(n int) {
	m.registries.Set(float64(n))
}

// EventCounter returns a sink counting published events by kind.
func (m *Metrics) EventCounter() *EventCounter {
	return &EventCounter{counter: m.events}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ interfaces.EventSink = (*EventCounter)(nil)

// EventCounter is an interfaces.EventSink backed by a counter.
type EventCounter struct {
	counter *prometheus.CounterVec
}

func (c *EventCounter) Publish(ctx context.Context, registry interfaces.Address, events []interfaces.Event) error {
	for _, event := range events {
		c.counter.WithLabelValues(string(event.Kind)).Inc()
	}
	return nil
}

// MetricsServer serves /metrics on its own address.
type MetricsServer struct {
	*Metrics
	srv *http.Server
}

// New creates the metrics of namespace and a server for them on addr.
func New(namespace, addr string) (*MetricsServer, error) {
	m := NewMetrics(namespace)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	return &MetricsServer{
		Metrics: m,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
