package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Assessment metrics
	assessments         *prometheus.CounterVec
	accuracy            *prometheus.HistogramVec
	assessmentDuration  prometheus.Histogram
	assessmentFailures  *prometheus.CounterVec
	transcriptionTime   *prometheus.HistogramVec
	transcriptionErrors *prometheus.CounterVec
	synthesisTime       *prometheus.HistogramVec
	synthesisErrors     *prometheus.CounterVec

	// Storage metrics
	storageWrites  *prometheus.CounterVec
	storageBytes   prometheus.Counter
	storagePurged  prometheus.Counter
	storageObjects prometheus.Gauge

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	queueWait          prometheus.Histogram

	// Worker metrics
	workerCount   prometheus.Gauge
	workerBusy    prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var accuracyBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 95, 100} //nolint:gochecknoglobals // bucket layout

var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000} //nolint:gochecknoglobals // bucket layout

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "parrot",
		subsystem:      "coach",
		latencyBuckets: defaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.assessments = auto.NewCounterVec(m.counterOpts("assessments_total",
		"Completed pronunciation assessments by language and feedback tier"), []string{"language", "tier"})
	m.accuracy = auto.NewHistogramVec(m.histogramOpts("accuracy_percent",
		"Distribution of accuracy scores", accuracyBuckets), []string{"language"})
	m.assessmentDuration = auto.NewHistogram(m.histogramOpts("assessment_duration_milliseconds",
		"End-to-end assessment latency in milliseconds", m.latencyBuckets))
	m.assessmentFailures = auto.NewCounterVec(m.counterOpts("assessment_failures_total",
		"Assessments that ended in an error, by reason"), []string{"reason"})
	m.transcriptionTime = auto.NewHistogramVec(m.histogramOpts("transcription_latency_milliseconds",
		"Speech-to-text latency in milliseconds", m.latencyBuckets), []string{"language"})
	m.transcriptionErrors = auto.NewCounterVec(m.counterOpts("transcription_errors_total",
		"Speech-to-text failures"), []string{"language"})
	m.synthesisTime = auto.NewHistogramVec(m.histogramOpts("synthesis_latency_milliseconds",
		"Text-to-speech latency in milliseconds", m.latencyBuckets), []string{"language"})
	m.synthesisErrors = auto.NewCounterVec(m.counterOpts("synthesis_errors_total",
		"Text-to-speech failures"), []string{"language"})

	m.storageWrites = auto.NewCounterVec(m.counterOpts("storage_writes_total",
		"Audio files written, by kind (uploaded, cleaned, tts)"), []string{"kind"})
	m.storageBytes = auto.NewCounter(m.counterOpts("storage_written_bytes_total",
		"Bytes of audio written to storage"))
	m.storagePurged = auto.NewCounter(m.counterOpts("storage_purged_total",
		"Audio files removed by the retention janitor"))
	m.storageObjects = auto.NewGauge(m.gaugeOpts("storage_objects",
		"Audio files currently held in storage"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Transcription jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum transcription queue length"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size divided by capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Jobs accepted by the queue"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Jobs handed to workers"))
	m.queueEnqueueErrors = auto.NewCounterVec(m.counterOpts("queue_enqueue_errors_total",
		"Jobs rejected by the queue, by reason"), []string{"reason"})
	m.queueWait = auto.NewHistogram(m.histogramOpts("queue_wait_milliseconds",
		"Time a job spent queued before a worker picked it up", m.latencyBuckets))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Transcription workers running"))
	m.workerBusy = auto.NewGauge(m.gaugeOpts("worker_busy", "Transcription workers currently processing a job"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time a worker spent on one job", m.latencyBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Jobs that finished with an error"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.latencyBuckets), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorsByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Errors by type and severity"), []string{"error_type", "severity"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"HTTP errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"Average GC pause in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordAssessment counts a finished assessment and observes its accuracy.
func RecordAssessment(language, tier string, accuracy, durationMs float64) {
	globalManager.assessments.WithLabelValues(language, tier).Inc()
	globalManager.accuracy.WithLabelValues(language).Observe(accuracy)
	globalManager.assessmentDuration.Observe(durationMs)
}

// RecordAssessmentFailure counts an assessment that ended in an error.
func RecordAssessmentFailure(reason string) {
	globalManager.assessmentFailures.WithLabelValues(reason).Inc()
}

// RecordTranscription observes one speech-to-text call.
func RecordTranscription(language string, latencyMs float64, failed bool) {
	globalManager.transcriptionTime.WithLabelValues(language).Observe(latencyMs)
	if failed {
		globalManager.transcriptionErrors.WithLabelValues(language).Inc()
	}
}

// RecordSynthesis observes one text-to-speech call.
func RecordSynthesis(language string, latencyMs float64, failed bool) {
	globalManager.synthesisTime.WithLabelValues(language).Observe(latencyMs)
	if failed {
		globalManager.synthesisErrors.WithLabelValues(language).Inc()
	}
}

// RecordStorageWrite counts a file written to storage.
func RecordStorageWrite(kind string, bytes int) {
	globalManager.storageWrites.WithLabelValues(kind).Inc()
	globalManager.storageBytes.Add(float64(bytes))
}

// RecordStoragePurged counts files removed by the janitor.
func RecordStoragePurged(count int) {
	globalManager.storagePurged.Add(float64(count))
}

// UpdateStorageObjects sets the number of stored files.
func UpdateStorageObjects(count int) {
	globalManager.storageObjects.Set(float64(count))
}

// UpdateQueueSize sets the current queue length and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a job handed to a worker and how long it waited.
func RecordQueueDequeue(waitMs float64) {
	globalManager.queueDequeued.Inc()
	globalManager.queueWait.Observe(waitMs)
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// WorkerBusy adjusts the busy-worker gauge by delta.
func WorkerBusy(delta int) {
	globalManager.workerBusy.Add(float64(delta))
}

// RecordWorkerProcessingLatency observes one job's processing time.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a job that failed.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an HTTP error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
