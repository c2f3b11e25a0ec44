package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	classificationsTotal *prometheus.CounterVec
	suggestionsTotal     *prometheus.CounterVec
	templateCacheSize    prometheus.Gauge
	templateRefreshTotal *prometheus.CounterVec
	batchSubmitted       *prometheus.CounterVec
	batchCancelRequests  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mpt",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mpt",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	classificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "classify",
			Name:      "results_total",
			Help:      "Total classified files by resulting document type.",
		},
		[]string{"service", "document_type"},
	)
	suggestionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "classify",
			Name:      "template_suggestions_total",
			Help:      "Total classification results that matched a template.",
		},
		[]string{"service", "matched"},
	)
	templateCacheSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mpt",
			Subsystem: "templates",
			Name:      "cache_size",
			Help:      "Number of templates currently cached.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	templateRefreshTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "templates",
			Name:      "refresh_total",
			Help:      "Total template cache refreshes by status.",
		},
		[]string{"service", "status"},
	)
	batchSubmitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "batch",
			Name:      "submitted_total",
			Help:      "Total submitted batch runs by extraction mode.",
		},
		[]string{"service", "mode"},
	)
	batchCancelRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "batch",
			Name:      "cancel_requests_total",
			Help:      "Total batch cancel requests.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		classificationsTotal,
		suggestionsTotal,
		templateCacheSize,
		templateRefreshTotal,
		batchSubmitted,
		batchCancelRequests,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		classificationsTotal: classificationsTotal,
		suggestionsTotal:     suggestionsTotal,
		templateCacheSize:    templateCacheSize,
		templateRefreshTotal: templateRefreshTotal,
		batchSubmitted:       batchSubmitted,
		batchCancelRequests:  batchCancelRequests,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/batches/"):
		if strings.HasSuffix(path, "/cancel") {
			return "/v1/batches/{run_id}/cancel"
		}
		return "/v1/batches/{run_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordClassification(service, documentType string, matched bool) {
	if documentType == "" {
		documentType = "unknown"
	}
	m.classificationsTotal.WithLabelValues(service, documentType).Inc()
	m.suggestionsTotal.WithLabelValues(service, strconv.FormatBool(matched)).Inc()
}

func (m *HTTPServerMetrics) RecordTemplateRefresh(service string, count int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.templateRefreshTotal.WithLabelValues(service, status).Inc()
	if err == nil {
		m.templateCacheSize.Set(float64(count))
	}
}

func (m *HTTPServerMetrics) RecordBatchSubmitted(service, mode string) {
	if mode == "" {
		mode = "unknown"
	}
	m.batchSubmitted.WithLabelValues(service, mode).Inc()
}

func (m *HTTPServerMetrics) RecordBatchCancel(service string) {
	m.batchCancelRequests.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
