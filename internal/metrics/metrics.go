// Package metrics holds the Prometheus collectors for store calls and
// stocktake sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	storeCalls    *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	scans         *prometheus.CounterVec
	processed     *prometheus.CounterVec
	sessions      prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		storeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opname",
			Name:      "store_calls_total",
			Help:      "Document store calls by operation and result.",
		}, []string{"op", "result"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opname",
			Name:      "store_call_duration_seconds",
			Help:      "Document store call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opname",
			Name:      "scans_total",
			Help:      "Scanned identifiers by lookup outcome.",
		}, []string{"outcome"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opname",
			Name:      "items_processed_total",
			Help:      "Items fully processed during stocktake, by result.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "opname",
			Name:      "active_sessions",
			Help:      "Stocktake sessions currently open.",
		}),
	}
	reg.MustRegister(m.storeCalls, m.storeDuration, m.scans, m.processed, m.sessions)
	return m
}

// Scan outcomes.
const (
	ScanFound    = "found"
	ScanNotFound = "not_found"
	ScanError    = "error"
)

// Processing results.
const (
	ResultMatched   = "matched"
	ResultCorrected = "corrected"
)

// ObserveStore records one store call.
func (m *Metrics) ObserveStore(op string, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeCalls.WithLabelValues(op, result).Inc()
	m.storeDuration.WithLabelValues(op).Observe(took.Seconds())
}

// Scanned records the outcome of a scan lookup.
func (m *Metrics) Scanned(outcome string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
}

// Processed records a verified or corrected item.
func (m *Metrics) Processed(result string) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(result).Inc()
}

// SessionOpened and SessionClosed track open sessions.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
