// Package metrics provides Prometheus metrics for the container timing service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Entry classifications observed by the stream interceptor.
const (
	ClassPassthrough = "passthrough"
	ClassAggregated  = "aggregated"
	ClassPreserved   = "preserved"
	ClassDropped     = "dropped"
)

// Strategy decisions.
const (
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
)

// Manager manages all Prometheus metrics for the container timing service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion
	batchesReceived  prometheus.Counter
	batchesDuplicate prometheus.Counter
	batchesProcessed prometheus.Counter
	batchLatency     prometheus.Histogram

	// Aggregation
	entriesClassified *prometheus.CounterVec
	strategyDecisions *prometheus.CounterVec
	containerEntries  *prometheus.CounterVec
	containersTracked prometheus.Gauge

	// Document
	domMutations   *prometheus.CounterVec
	elementsTagged *prometheus.CounterVec

	// Overlay
	overlayRegions prometheus.Gauge

	// Repository
	repositoryReports       prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "ctiming",
		subsystem:        "aggregator",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.batchesReceived = m.counter("batches_received_total", "Total number of paint entry batches received")
	m.batchesDuplicate = m.counter("batches_duplicate_total", "Total number of batches dropped as duplicates")
	m.batchesProcessed = m.counter("batches_processed_total", "Total number of batches aggregated")
	m.batchLatency = m.histogram("batch_latency_milliseconds", "Time to aggregate one batch in milliseconds")

	m.entriesClassified = m.counterVec("entries_classified_total",
		"Paint entries seen by the stream interceptor by classification", "class")
	m.strategyDecisions = m.counterVec("strategy_decisions_total",
		"Aggregation strategy decisions by strategy and outcome", "strategy", "decision")
	m.containerEntries = m.counterVec("container_entries_total",
		"Synthesized container entries delivered by strategy", "strategy")
	m.containersTracked = m.gauge("containers_tracked", "Number of container roots with aggregation state")

	m.domMutations = m.counterVec("dom_mutations_total", "Document mutations applied by operation", "op")
	m.elementsTagged = m.counterVec("elements_tagged_total", "Elements tagged for paint timing by tag state", "state")

	m.overlayRegions = m.gauge("overlay_regions_active", "Debug overlay regions currently shown")

	m.repositoryReports = m.gauge("repository_reports_total", "Number of containers with a stored report")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds",
		"Repository record latency in milliseconds")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds",
		"Repository query latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Current number of batches waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of batches enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of batches dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently processing a batch")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordBatchReceived increments the received batches counter.
func RecordBatchReceived() { globalManager.batchesReceived.Inc() }

// RecordBatchDuplicate increments the duplicate batches counter.
func RecordBatchDuplicate() { globalManager.batchesDuplicate.Inc() }

// RecordBatchProcessed increments the processed batches counter.
func RecordBatchProcessed() { globalManager.batchesProcessed.Inc() }

// RecordBatchLatency records aggregation latency in milliseconds.
func RecordBatchLatency(latencyMs float64) { globalManager.batchLatency.Observe(latencyMs) }

// RecordEntryClassified counts one entry under class.
func RecordEntryClassified(class string) error {
	switch class {
	case ClassPassthrough, ClassAggregated, ClassPreserved, ClassDropped:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownClassification, class)
	}
	globalManager.entriesClassified.WithLabelValues(class).Inc()
	return nil
}

// RecordStrategyDecision counts one accept or reject decision.
func RecordStrategyDecision(strategy string, accepted bool) {
	decision := DecisionRejected
	if accepted {
		decision = DecisionAccepted
	}
	globalManager.strategyDecisions.WithLabelValues(strategy, decision).Inc()
}

// RecordContainerEntries adds n delivered container entries.
func RecordContainerEntries(strategy string, n int) {
	globalManager.containerEntries.WithLabelValues(strategy).Add(float64(n))
}

// UpdateContainersTracked sets the tracked container count.
func UpdateContainersTracked(n int) { globalManager.containersTracked.Set(float64(n)) }

// RecordDOMMutation counts one applied mutation.
func RecordDOMMutation(op string) { globalManager.domMutations.WithLabelValues(op).Inc() }

// RecordElementsTagged adds n tagged elements under state.
func RecordElementsTagged(state string, n int) {
	if n <= 0 {
		return
	}
	globalManager.elementsTagged.WithLabelValues(state).Add(float64(n))
}

// UpdateOverlayRegions sets the number of visible overlay regions.
func UpdateOverlayRegions(n int) { globalManager.overlayRegions.Set(float64(n)) }

// UpdateRepositoryReports sets the number of stored container reports.
func UpdateRepositoryReports(n int) { globalManager.repositoryReports.Set(float64(n)) }

// RecordRepositoryUpdateLatency records repository record latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
