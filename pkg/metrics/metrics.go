// Package metrics exposes Prometheus collectors for graph queries, driver
// sessions, HTTP requests and ingest messages. A *Metrics implements
// graphdb.Observer, so it plugs straight into the connection manager.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
)

const namespace = "fleetgraph"

// DefaultBuckets are latency buckets in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	reg *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	sessionsOpen  *prometheus.GaugeVec
	sessions      *prometheus.CounterVec
	state         prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ingest *prometheus.CounterVec
}

var _ graphdb.Observer = (*Metrics)(nil)

// New creates a Metrics with Go runtime and process collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "queries_total",
			Help:      "Graph queries by operation, label and outcome.",
		}, []string{"op", "label", "outcome"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "query_duration_seconds",
			Help:      "Graph query latency by operation.",
			Buckets:   DefaultBuckets,
		}, []string{"op"}),
		sessionsOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "sessions_open",
			Help:      "Driver sessions currently open by access mode.",
		}, []string{"mode"}),
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "sessions_total",
			Help:      "Driver sessions opened by access mode.",
		}, []string{"mode"}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "connection_state",
			Help:      "Connection manager state: 0 disconnected, 1 connecting, 2 connected, 3 failed, 4 closed.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   DefaultBuckets,
		}, []string{"method", "route"}),
		ingest: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Ingest messages by action, kind and outcome.",
		}, []string{"action", "kind", "outcome"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// outcome is "ok" or the error kind.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := domain.ErrorKind(err); k != "" {
		return k
	}
	return "error"
}

// QueryDone implements graphdb.Observer.
func (m *Metrics) QueryDone(op cypher.Op, label string, d time.Duration, err error) {
	m.queries.WithLabelValues(string(op), label, outcome(err)).Inc()
	m.queryDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}

// StateChanged implements graphdb.Observer.
func (m *Metrics) StateChanged(s graphdb.State) { m.state.Set(float64(s)) }

// SessionOpened implements graphdb.Observer.
func (m *Metrics) SessionOpened(mode graphdb.Mode) {
	m.sessions.WithLabelValues(mode.String()).Inc()
	m.sessionsOpen.WithLabelValues(mode.String()).Inc()
}

// SessionClosed implements graphdb.Observer.
func (m *Metrics) SessionClosed(mode graphdb.Mode) {
	m.sessionsOpen.WithLabelValues(mode.String()).Dec()
}

// ObserveRequest records one served HTTP request. route should be the
// matched pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// IngestHandled records one processed ingest message.
func (m *Metrics) IngestHandled(action string, kind domain.Kind, err error) {
	m.ingest.WithLabelValues(action, string(kind), outcome(err)).Inc()
}
