package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected *prometheus.CounterVec
	visitorsCounted   prometheus.Counter
	counterFallbacks  prometheus.Counter
	counterErrors     *prometheus.CounterVec
	exportsEnqueued   *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapframe_api_requests_total",
			Help: "Total HTTP requests handled by the API.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapframe_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapframe_api_rate_limit_rejections_total",
			Help: "Total API requests rejected by rate limiting.",
		}, []string{"route"}),
		visitorsCounted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapframe_visitors_counted_total",
			Help: "Visitors counted for the first time within the marker window.",
		}),
		counterFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapframe_visitor_counter_fallbacks_total",
			Help: "Increments served by the non-atomic select/update path.",
		}),
		counterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapframe_visitor_counter_errors_total",
			Help: "Visitor counter failures by error kind.",
		}, []string{"kind"}),
		exportsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapframe_frame_exports_enqueued_total",
			Help: "Total frame exports enqueued for rendering.",
		}, []string{"queue"}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.rateLimitRejected,
		m.visitorsCounted,
		m.counterFallbacks,
		m.counterErrors,
		m.exportsEnqueued,
	)
	return m
}

func (m *metrics) metricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := routeLabel(r.URL.Path)
		status := statusLabel(recorder.status)

		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}

// routeLabel maps a request path to its route pattern so ids never become
// label values.
func routeLabel(path string) string {
	switch {
	case path == visitorsPath:
		return visitorsPath
	case strings.HasPrefix(path, "/api/frames/") && strings.HasSuffix(path, "/export"):
		return "/api/frames/{id}/export"
	case strings.HasPrefix(path, "/api/frames/"):
		return "/api/frames/{id}"
	case path == "/api/frames":
		return "/api/frames"
	case path == "/api/colors/contrast":
		return "/api/colors/contrast"
	case path == "/api/presets":
		return "/api/presets"
	case path == "/healthz":
		return "/healthz"
	case path == "/metrics":
		return "/metrics"
	default:
		return "unmatched"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.status = statusCode
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
