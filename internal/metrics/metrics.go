// Package metrics exposes Prometheus collectors for the HTTP surface, the
// record store and the assistant.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/airsial/opshub/internal/records"
)

// Metrics holds all collectors behind a private registry so tests can run
// several instances side by side. A nil *Metrics is a no-op everywhere,
// which is how the metrics endpoint is disabled.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	recordsTotal     *prometheus.GaugeVec
	importsTotal     *prometheus.CounterVec
	importedRows     prometheus.Counter
	assistantAnswers *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// New builds the collector set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opshub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opshub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		recordsTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "opshub",
			Name:      "records_total",
			Help:      "Records currently stored, by collection.",
		}, []string{"collection"}),
		importsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opshub",
			Name:      "imports_total",
			Help:      "Bulk import attempts by outcome.",
		}, []string{"outcome"}),
		importedRows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "opshub",
			Name:      "imported_rows_total",
			Help:      "Rows inserted through bulk imports.",
		}),
		assistantAnswers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opshub",
			Subsystem: "assistant",
			Name:      "answers_total",
			Help:      "Assistant answers by source.",
		}, []string{"source"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "opshub",
			Name:      "active_sessions",
			Help:      "Sessions currently alive.",
		}),
	}
}

// Handler serves the scrape endpoint for this collector set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// SetRecordCounts refreshes the per-collection record gauges.
func (m *Metrics) SetRecordCounts(counts map[records.Collection]int) {
	if m == nil {
		return
	}
	for c, n := range counts {
		m.recordsTotal.WithLabelValues(string(c)).Set(float64(n))
	}
}

// ObserveImport records one bulk import attempt and the rows it inserted.
func (m *Metrics) ObserveImport(outcome string, rows int) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(outcome).Inc()
	if rows > 0 {
		m.importedRows.Add(float64(rows))
	}
}

// ObserveAnswer records one assistant answer by source.
func (m *Metrics) ObserveAnswer(source string) {
	if m == nil {
		return
	}
	m.assistantAnswers.WithLabelValues(source).Inc()
}

// SetActiveSessions refreshes the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
