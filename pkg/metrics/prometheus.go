// Package metrics provides Prometheus metrics for the matchrisk service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the matchrisk service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Rate limiter
	limiterAcquisitions prometheus.Counter
	limiterWait         prometheus.Histogram
	limiterTokens       prometheus.Gauge

	// Fetching
	fetchAttempts      *prometheus.CounterVec
	fetchLatency       prometheus.Histogram
	fetchBatchFailures prometheus.Counter
	fetchBatchSize     prometheus.Gauge

	// Cohort construction
	cohortBuildDuration *prometheus.HistogramVec
	cohortProfiles      *prometheus.GaugeVec
	profileErrors       prometheus.Counter
	integrationFailures prometheus.Counter
	crossingUndefined   *prometheus.CounterVec

	// Ranking store
	rankingEntries      prometheus.Gauge
	rankingQueryLatency prometheus.Histogram
	rankingUpdates      prometheus.Counter

	// Worker pool
	workerActiveCount  prometheus.Gauge
	workerTaskLatency  prometheus.Histogram
	workerErrorRate    prometheus.Counter
	workerTasksHandled prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchrisk",
		subsystem:        "analyzer",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// RefreshInterval is how often gauge updaters should sample.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(auto promauto.Factory, name, help string) prometheus.Counter {
	return auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(auto promauto.Factory, name, help string) prometheus.Gauge {
	return auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(auto promauto.Factory, name, help string, buckets []float64) prometheus.Histogram {
	return auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.limiterAcquisitions = m.counter(auto, "limiter_acquisitions_total",
		"Total number of tokens handed out by the rate limiter")
	m.limiterWait = m.histogram(auto, "limiter_wait_milliseconds",
		"Time spent waiting for a rate limiter token in milliseconds",
		[]float64{0, 1, 10, 50, 100, 250, 500, 1000, 2000, 5000, 10000})
	m.limiterTokens = m.gauge(auto, "limiter_tokens_available",
		"Tokens available in the rate limiter after the last acquisition")

	m.fetchAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fetch_attempts_total"),
		Help:        "Upstream fetch attempts by outcome",
		ConstLabels: m.customLabels,
	}, []string{"outcome"})
	m.fetchLatency = m.histogram(auto, "fetch_latency_milliseconds",
		"Upstream fetch latency in milliseconds, excluding limiter wait",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
	m.fetchBatchFailures = m.counter(auto, "fetch_batch_failures_total",
		"Fetch batches that failed and discarded their results")
	m.fetchBatchSize = m.gauge(auto, "fetch_batch_size",
		"Number of distinct keys in the last fetch batch")

	m.cohortBuildDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cohort_build_duration_milliseconds"),
		Help:        "Cohort build duration in milliseconds by tier",
		Buckets:     []float64{10, 100, 500, 1000, 5000, 10000, 30000, 60000, 120000},
		ConstLabels: m.customLabels,
	}, []string{"tier"})
	m.cohortProfiles = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cohort_profiles"),
		Help:        "Profiles in the most recent cohort by tier",
		ConstLabels: m.customLabels,
	}, []string{"tier"})
	m.profileErrors = m.counter(auto, "profile_errors_total",
		"Entity profiles that failed to build")
	m.integrationFailures = m.counter(auto, "integration_failures_total",
		"Numerical integrations that did not meet tolerance")
	m.crossingUndefined = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("crossing_undefined_total"),
		Help:        "Role statistics whose 50/50 crossing fell outside the bracket",
		ConstLabels: m.customLabels,
	}, []string{"role"})

	m.rankingEntries = m.gauge(auto, "ranking_entries",
		"Entries held by the ranking store")
	m.rankingQueryLatency = m.histogram(auto, "ranking_query_latency_milliseconds",
		"Ranking store query latency in milliseconds", m.histogramBuckets)
	m.rankingUpdates = m.counter(auto, "ranking_updates_total",
		"Ranking store upserts")

	m.workerActiveCount = m.gauge(auto, "worker_active_count",
		"Workers currently running a parallel map")
	m.workerTaskLatency = m.histogram(auto, "worker_task_latency_milliseconds",
		"Latency of a single worker pool task in milliseconds",
		[]float64{0.1, 1, 5, 10, 50, 100, 500, 1000, 5000})
	m.workerErrorRate = m.counter(auto, "worker_errors_total",
		"Worker pool tasks that returned an error")
	m.workerTasksHandled = m.counter(auto, "worker_tasks_total",
		"Worker pool tasks completed")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and type",
		ConstLabels: m.customLabels,
	}, []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by endpoint, method and type",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = m.gauge(auto, "system_memory_usage_bytes",
		"System memory usage in bytes")
	m.systemGoroutineCount = m.gauge(auto, "system_goroutine_count",
		"Number of goroutines")
	m.systemGCPauseTime = m.histogram(auto, "system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Rate limiter.

// RecordLimiterAcquire records one handed-out token and how long it took.
func RecordLimiterAcquire(waitMs float64, tokensLeft float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.limiterAcquisitions.Inc()
	globalManager.limiterWait.Observe(waitMs)
	globalManager.limiterTokens.Set(tokensLeft)
}

// Fetching.

// RecordFetchAttempt records an upstream fetch with its outcome label
// ("ok", "error" or "canceled").
func RecordFetchAttempt(outcome string, latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.fetchAttempts.WithLabelValues(outcome).Inc()
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchBatchFailure increments the failed batch counter.
func RecordFetchBatchFailure() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.fetchBatchFailures.Inc()
}

// UpdateFetchBatchSize sets the size of the current batch.
func UpdateFetchBatchSize(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.fetchBatchSize.Set(float64(n))
}

// Cohort construction.

// RecordCohortBuild records a finished cohort build.
func RecordCohortBuild(tier string, profiles int, durationMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.cohortBuildDuration.WithLabelValues(tier).Observe(durationMs)
	globalManager.cohortProfiles.WithLabelValues(tier).Set(float64(profiles))
}

// RecordProfileError increments the profile error counter.
func RecordProfileError() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.profileErrors.Inc()
}

// RecordIntegrationFailure increments the integration failure counter.
func RecordIntegrationFailure() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.integrationFailures.Inc()
}

// RecordCrossingUndefined counts a role whose crossing is undefined.
func RecordCrossingUndefined(role string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.crossingUndefined.WithLabelValues(role).Inc()
}

// Ranking store.

// UpdateRankingEntries sets the number of ranked entries.
func UpdateRankingEntries(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.rankingEntries.Set(float64(count))
}

// RecordRankingQueryLatency records ranking store query latency.
func RecordRankingQueryLatency(latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.rankingQueryLatency.Observe(latencyMs)
}

// RecordRankingUpdate increments the ranking upsert counter.
func RecordRankingUpdate() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.rankingUpdates.Inc()
}

// Worker pool.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerTask records one completed worker pool task.
func RecordWorkerTask(latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerTasksHandled.Inc()
	globalManager.workerTaskLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerErrorRate.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

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

// SetEnabled switches recording on or off for the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled.Store(enabled)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
