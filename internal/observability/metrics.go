// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tubefetch"

// Metrics holds all application metrics.
type Metrics struct {
	// Metadata phase
	FetchesTotal *prometheus.CounterVec

	// Download phase
	DownloadsTotal      *prometheus.CounterVec
	DownloadsInProgress prometheus.Gauge
	DownloadBytes       prometheus.Counter
	DownloadDuration    prometheus.Histogram
	Downgrades          prometheus.Counter

	// Storage metrics
	CleanupFilesTotal prometheus.Counter
	StoredFiles       prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Dependency metrics
	BinaryUpdatesTotal *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// New returns the process-wide metrics, registering them on first use.
func New() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewWithRegistry(prometheus.DefaultRegisterer)
	})

	return defaultMetrics
}

// NewWithRegistry registers a fresh set of metrics on reg. Tests pass their own registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "fetches_total",
			Help:      "Total number of metadata fetches by outcome",
		}, []string{"outcome"}),

		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "total",
			Help:      "Total number of downloads by outcome",
		}, []string{"outcome"}),
		DownloadsInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "in_progress",
			Help:      "Number of downloads currently in progress",
		}),
		DownloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "bytes_total",
			Help:      "Total bytes of finished output files",
		}),
		DownloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Histogram of download duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		Downgrades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "downgraded_total",
			Help:      "Downloads that ended below the requested resolution",
		}),

		CleanupFilesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "cleanup_files_total",
			Help:      "Total number of expired files cleaned up",
		}),
		StoredFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "files_current",
			Help:      "Current number of stored files",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPResponseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Histogram of HTTP response sizes in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		}, []string{"method", "path"}),

		BinaryUpdatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deps",
			Name:      "updates_total",
			Help:      "Total number of managed binary updates",
		}, []string{"binary"}),
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, size int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}

// RecordFetch counts a metadata fetch. outcome is "ok" or a phase error kind.
func (m *Metrics) RecordFetch(outcome string) {
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// DownloadStarted marks a download as in progress and returns the function that
// records its outcome. outcome is "ok" or a phase error kind.
func (m *Metrics) DownloadStarted() func(outcome string, bytes int64, downgraded bool) {
	start := time.Now()

	m.DownloadsInProgress.Inc()

	return func(outcome string, bytes int64, downgraded bool) {
		m.DownloadsInProgress.Dec()
		m.DownloadsTotal.WithLabelValues(outcome).Inc()
		m.DownloadDuration.Observe(time.Since(start).Seconds())
		m.DownloadBytes.Add(float64(bytes))

		if downgraded {
			m.Downgrades.Inc()
		}
	}
}

// RecordCleanup records removed expired files.
func (m *Metrics) RecordCleanup(files int) {
	m.CleanupFilesTotal.Add(float64(files))
}

// SetStoredFiles sets the number of stored files.
func (m *Metrics) SetStoredFiles(count int) {
	m.StoredFiles.Set(float64(count))
}

// RecordBinaryUpdate counts a managed binary replaced by a newer release.
func (m *Metrics) RecordBinaryUpdate(binary string) {
	m.BinaryUpdatesTotal.WithLabelValues(binary).Inc()
}
