// Package metrics provides Prometheus metrics for the wrinkle analysis service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 5 * time.Second
)

// percentBuckets cover the 0-100 edge-pixel percentage range, denser around
// the 5 and 15 category cutoffs.
var percentBuckets = []float64{0.5, 1, 2.5, 5, 7.5, 10, 12.5, 15, 20, 30, 50, 100} //nolint:gochecknoglobals // fixed bucket layout

// latencyBuckets are in milliseconds; a frame budget at 30 fps is ~33ms.
var latencyBuckets = []float64{1, 2, 5, 10, 20, 33, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	percentBuckets  []float64
	enabled         bool
	refreshInterval time.Duration
	customLabels    map[string]string
	metricPrefix    string
	registry        prometheus.Registerer

	// Frame loop
	framesProcessed prometheus.Counter
	framesDropped   prometheus.Counter
	frameLatency    prometheus.Histogram
	facesDetected   prometheus.Counter

	// Face analysis
	facesAnalyzed        prometheus.Counter
	faceErrors           *prometheus.CounterVec
	faceLatency          prometheus.Histogram
	ageCategories        *prometheus.CounterVec
	wrinkleAverage       prometheus.Histogram
	regionEdgePercentage *prometheus.HistogramVec
	regionClipped        *prometheus.CounterVec

	// Queue
	queueCapacity          prometheus.Gauge
	queueSize              prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerActiveCount       prometheus.Gauge
	workerFacesPerSecond    prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "wrinkles",
		subsystem:       "analyzer",
		latencyBuckets:  latencyBuckets,
		percentBuckets:  percentBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		customLabels:    make(map[string]string),
		metricPrefix:    "",
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often periodic gauges (system, queue, workers)
// should be sampled.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the sampling interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	if !m.enabled {
		// Unregistered collectors keep the recorders callable.
		auto = promauto.With(nil)
	}
	labels := prometheus.Labels(m.customLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	counterVec := func(name, help string, keys ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		}, keys)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels, Buckets: buckets,
		})
	}
	histogramVec := func(name, help string, buckets []float64, keys ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels, Buckets: buckets,
		}, keys)
	}

	m.framesProcessed = counter("frames_processed_total", "Total number of frames run through the analysis loop")
	m.framesDropped = counter("frames_dropped_total", "Total number of frames whose results were dropped after missing the deadline")
	m.frameLatency = histogram("frame_latency_milliseconds", "Time from detection to joined face results, per frame", m.latencyBuckets)
	m.facesDetected = counter("faces_detected_total", "Total number of face boxes returned by the detector")

	m.facesAnalyzed = counter("faces_analyzed_total", "Total number of faces that produced an age category")
	m.faceErrors = counterVec("face_errors_total", "Faces that failed analysis, by reason", "reason")
	m.faceLatency = histogram("face_analysis_latency_milliseconds", "Per-face pipeline latency in milliseconds", m.latencyBuckets)
	m.ageCategories = counterVec("age_category_total", "Faces classified per age category", "category")
	m.wrinkleAverage = histogram("wrinkle_average_percent", "Average edge-pixel percentage over the five regions, per face", m.percentBuckets)
	m.regionEdgePercentage = histogramVec("region_edge_percent", "Edge-pixel percentage per landmark region", m.percentBuckets, "region")
	m.regionClipped = counterVec("region_clipped_total", "Regions clipped to the face bounds", "region")

	m.queueCapacity = gauge("queue_capacity", "Maximum face job queue capacity")
	m.queueSize = gauge("queue_size", "Current number of queued face jobs")
	m.queueUtilization = gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = counter("queue_enqueue_total", "Total number of face jobs enqueued")
	m.queueDequeueRate = counter("queue_dequeue_total", "Total number of face jobs dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Total number of face jobs rejected by the queue")
	m.queueProcessingLatency = histogram("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds", m.latencyBuckets)

	m.workerActiveCount = gauge("worker_active_count", "Number of face workers running")
	m.workerFacesPerSecond = gauge("worker_faces_per_second", "Faces processed per second across the pool")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Face job processing latency in milliseconds", m.latencyBuckets)
	m.workerErrorRate = counter("worker_errors_total", "Total number of failed face jobs")

	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets, "endpoint", "method", "status_code")

	m.errorRateByComponent = counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = histogramVec("error_latency_milliseconds", "Latency of operations that ended in an error", m.latencyBuckets, "component", "error_type")

	m.systemMemoryUsage = gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds", m.latencyBuckets)
}

// Frame loop metrics.

// RecordFrameProcessed increments the processed frame counter and records its latency.
func RecordFrameProcessed(latencyMs float64) {
	globalManager.framesProcessed.Inc()
	globalManager.frameLatency.Observe(latencyMs)
}

// RecordFrameDropped increments the dropped frame counter.
func RecordFrameDropped() {
	globalManager.framesDropped.Inc()
}

// RecordFacesDetected adds n detected face boxes.
func RecordFacesDetected(n int) {
	globalManager.facesDetected.Add(float64(n))
}

// Face analysis metrics.

// RecordFaceAnalyzed records a successful face with its category and average.
func RecordFaceAnalyzed(category string, average float64, latencyMs float64) {
	globalManager.facesAnalyzed.Inc()
	globalManager.ageCategories.WithLabelValues(category).Inc()
	globalManager.wrinkleAverage.Observe(average)
	globalManager.faceLatency.Observe(latencyMs)
}

// RecordFaceError records a failed face by reason.
func RecordFaceError(reason string) {
	globalManager.faceErrors.WithLabelValues(reason).Inc()
}

// RecordRegionEdgePercentage observes one region's edge-pixel percentage.
func RecordRegionEdgePercentage(region string, percent float64) {
	globalManager.regionEdgePercentage.WithLabelValues(region).Observe(percent)
}

// RecordRegionClipped increments the clip counter of a region.
func RecordRegionClipped(region string) {
	globalManager.regionClipped.WithLabelValues(region).Inc()
}

// Queue metrics.

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerFacesPerSecond sets the pool throughput.
func UpdateWorkerFacesPerSecond(rate float64) {
	globalManager.workerFacesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
