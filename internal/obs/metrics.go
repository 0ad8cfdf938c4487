// Package obs exposes memmond's own operational metrics: prometheus
// counters for report cycles plus an optional HTTP server with /metrics,
// /healthz and pprof endpoints.
package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon's instrumentation on a private registry so
// tests can create as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	reportsTotal     prometheus.Counter
	deliveryFailures *prometheus.CounterVec
	reportDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		reportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memmond_reports_total",
			Help: "Number of report cycles that completed delivery.",
		}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memmond_delivery_failures_total",
			Help: "Number of failed delivery attempts, by sink.",
		}, []string{"sink"}),
		reportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memmond_report_duration_seconds",
			Help:    "Wall time of one capture+render+deliver cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.reportsTotal,
		m.deliveryFailures,
		m.reportDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCycle records the outcome of one report cycle.
func (m *Metrics) ObserveCycle(took time.Duration, sinkName string, err error) {
	m.reportDuration.Observe(took.Seconds())
	if err != nil {
		m.deliveryFailures.WithLabelValues(sinkName).Inc()
		return
	}
	m.reportsTotal.Inc()
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
