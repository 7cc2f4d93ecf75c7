package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry       *prometheus.Registry
	exportsTotal   *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	activeExports  prometheus.Gauge
	photoPixels    prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapframe_worker_exports_total",
			Help: "Total frame exports by final status.",
		}, []string{"status"}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapframe_worker_export_duration_seconds",
			Help:    "Time from task start to renderer hand-off.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		activeExports: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "snapframe_worker_active_exports",
			Help: "Exports currently being prepared by the worker.",
		}),
		photoPixels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapframe_worker_photo_pixels_total",
			Help: "Total pixels of photos handed off for rendering.",
		}),
	}

	registry.MustRegister(
		m.exportsTotal,
		m.exportDuration,
		m.activeExports,
		m.photoPixels,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
