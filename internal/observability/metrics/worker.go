package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	runTotal        *prometheus.CounterVec
	fileTotal       *prometheus.CounterVec
	fileDuration    *prometheus.HistogramVec
	filesInFlight   prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	updateFallbacks *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "worker",
			Name:      "batch_runs_total",
			Help:      "Total finished batch runs by terminal status.",
		},
		[]string{"service", "status"},
	)
	fileTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "worker",
			Name:      "file_process_total",
			Help:      "Total processed files by status.",
		},
		[]string{"service", "status"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mpt",
			Subsystem: "worker",
			Name:      "file_process_duration_seconds",
			Help:      "Per-file processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	filesInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mpt",
			Subsystem: "worker",
			Name:      "file_process_in_flight",
			Help:      "Number of files currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mpt",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between batch submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	updateFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpt",
			Subsystem: "worker",
			Name:      "metadata_update_fallbacks_total",
			Help:      "Total metadata writes that hit an existing record and switched to update.",
		},
		[]string{"service"},
	)

	registry.MustRegister(runTotal, fileTotal, fileDuration, filesInFlight, queueLag, updateFallbacks)

	return &WorkerMetrics{
		registry:        registry,
		runTotal:        runTotal,
		fileTotal:       fileTotal,
		fileDuration:    fileDuration,
		filesInFlight:   filesInFlight,
		queueLag:        queueLag,
		updateFallbacks: updateFallbacks,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) FinishRun(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.runTotal.WithLabelValues(service, status).Inc()
}

func (m *WorkerMetrics) StartFile() {
	m.filesInFlight.Inc()
}

func (m *WorkerMetrics) FinishFile(service string, duration time.Duration, success, updated bool) {
	m.filesInFlight.Dec()

	status := "success"
	if !success {
		status = "error"
	}
	m.fileTotal.WithLabelValues(service, status).Inc()
	m.fileDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if updated {
		m.updateFallbacks.WithLabelValues(service).Inc()
	}
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
