// Package metrics provides Prometheus metrics for the vigil fraud pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the vigil service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Decision path - what really matters for the scoring SLA
	decisionsTotal      *prometheus.CounterVec
	decisionsDuplicate  prometheus.Counter
	decisionsFallback   prometheus.Counter
	decisionsDegraded   prometheus.Counter
	decisionsError      prometheus.Counter
	decisionLatency     prometheus.Histogram
	featureFetchLatency prometheus.Histogram
	oracleLatency       prometheus.Histogram
	oracleFailures      prometheus.Counter

	// Case lifecycle
	casesOpened     prometheus.Counter
	casesResolved   *prometheus.CounterVec
	caseTransitions *prometheus.CounterVec
	slaBreaches     prometheus.Counter
	escalations     prometheus.Counter
	seniorRoutings  prometheus.Counter
	staleTimerFires prometheus.Counter
	openCases       prometheus.Gauge
	archivedCases   prometheus.Gauge
	reviewQueueLen  prometheus.Gauge

	// Feedback loop
	feedbackPublished    prometheus.Counter
	feedbackDuplicate    prometheus.Counter
	feedbackRetries      prometheus.Counter
	feedbackDeadLettered prometheus.Counter

	// Drift & latency monitor
	driftScore      prometheus.Gauge
	windowP95       prometheus.Gauge
	windowP99       prometheus.Gauge
	monitorWindows  prometheus.Counter
	alertsPublished *prometheus.CounterVec

	// Queue metrics - per topic
	queueSize          *prometheus.GaugeVec
	queueCapacity      *prometheus.GaugeVec
	queueEnqueues      *prometheus.CounterVec
	queueDequeues      *prometheus.CounterVec
	queueEnqueueErrors *prometheus.CounterVec

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository metrics - case store and review queue
	repositoryRecordsTotal            prometheus.Gauge
	repositoryUpdateLatency           prometheus.Histogram
	repositoryQueryLatency            prometheus.Histogram
	repositorySnapshotRebuildDuration prometheus.Histogram
	repositorySnapshotLastUnix        prometheus.Gauge
	repositorySnapshotCount           prometheus.Counter
	repositorySnapshotLastDurationMs  prometheus.Gauge

	// HTTP performance
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System performance
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
		namespace:        "vigil",
		subsystem:        "fraud",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 150, 200, 300, 500, 1000, 2500},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Decision path
	m.decisionsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "decisions_total",
			Help:      "Total number of decisions emitted, by outcome",
		},
		[]string{"outcome"},
	)

	m.decisionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decisions_duplicate_total",
		Help:      "Total number of redelivered transactions absorbed idempotently",
	})

	m.decisionsFallback = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decisions_fallback_total",
		Help:      "Total number of decisions scored by the rule-based fallback",
	})

	m.decisionsDegraded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decisions_degraded_total",
		Help:      "Total number of decisions made from a partial feature vector",
	})

	m.decisionsError = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decisions_error_total",
		Help:      "Total number of fail-open decisions emitted on unrecoverable errors",
	})

	m.decisionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decision_latency_milliseconds",
		Help:      "End-to-end decision latency in milliseconds (SLA metric)",
		Buckets:   m.histogramBuckets,
	})

	m.featureFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feature_fetch_latency_milliseconds",
		Help:      "Feature snapshot fetch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.oracleLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "oracle_latency_milliseconds",
		Help:      "Scoring oracle call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.oracleFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "oracle_failures_total",
		Help:      "Total number of scoring oracle timeouts and errors",
	})

	// Case lifecycle
	m.casesOpened = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cases_opened_total",
		Help:      "Total number of review cases opened by the dispatcher",
	})

	m.casesResolved = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cases_resolved_total",
			Help:      "Total number of cases resolved, by label",
		},
		[]string{"label"},
	)

	m.caseTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "case_transitions_total",
			Help:      "Total number of case state transitions, by from/to state",
		},
		[]string{"from", "to"},
	)

	m.slaBreaches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sla_breaches_total",
		Help:      "Total number of SLA timer expiries (normal escalation transitions)",
	})

	m.escalations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "escalations_total",
		Help:      "Total number of case escalations (manual and breach-driven)",
	})

	m.seniorRoutings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "senior_routings_total",
		Help:      "Total number of cases force-routed past the escalation ceiling",
	})

	m.staleTimerFires = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stale_timer_fires_total",
		Help:      "Total number of SLA timer fires discarded by generation check",
	})

	m.openCases = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "open_cases",
		Help:      "Current number of open review cases",
	})

	m.archivedCases = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archived_cases",
		Help:      "Total number of archived (resolved) cases",
	})

	m.reviewQueueLen = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "review_queue_depth",
		Help:      "Current depth of the urgency-ordered review queue",
	})

	// Feedback loop
	m.feedbackPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_published_total",
		Help:      "Total number of feedback records published for retraining",
	})

	m.feedbackDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_duplicate_total",
		Help:      "Total number of redelivered resolutions absorbed idempotently",
	})

	m.feedbackRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_retries_total",
		Help:      "Total number of feedback publish retries",
	})

	m.feedbackDeadLettered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_dead_lettered_total",
		Help:      "Total number of feedback records routed to the dead-letter queue",
	})

	// Drift & latency monitor
	m.driftScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "drift_psi",
		Help:      "Population stability index of the latest monitoring window",
	})

	m.windowP95 = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "window_latency_p95_milliseconds",
		Help:      "Decision latency p95 of the latest monitoring window",
	})

	m.windowP99 = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "window_latency_p99_milliseconds",
		Help:      "Decision latency p99 of the latest monitoring window",
	})

	m.monitorWindows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "monitor_windows_total",
		Help:      "Total number of monitoring windows evaluated",
	})

	m.alertsPublished = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "alerts_published_total",
			Help:      "Total number of alerts published, by kind and severity",
		},
		[]string{"kind", "severity"},
	)

	// Queue metrics
	m.queueSize = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queue_size",
			Help:      "Current size of a queue topic (backlog indicator)",
		},
		[]string{"topic"},
	)

	m.queueCapacity = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queue_capacity",
			Help:      "Configured capacity of a queue topic",
		},
		[]string{"topic"},
	)

	m.queueEnqueues = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queue_enqueues_total",
			Help:      "Total number of successful enqueues per topic",
		},
		[]string{"topic"},
	)

	m.queueDequeues = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queue_dequeues_total",
			Help:      "Total number of dequeues per topic",
		},
		[]string{"topic"},
	)

	m.queueEnqueueErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queue_enqueue_errors_total",
			Help:      "Total number of failed enqueues per topic and reason",
		},
		[]string{"topic", "reason"},
	)

	// Worker metrics
	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Current number of active dispatch workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Dispatch worker per-event processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of dispatch worker processing errors",
	})

	// Repository metrics
	m.repositoryRecordsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_records_total",
		Help:      "Total number of case records across all shards",
	})

	m.repositoryUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_milliseconds",
		Help:      "Case store update latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Case store query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repositorySnapshotRebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_snapshot_rebuild_milliseconds",
		Help:      "Review queue snapshot rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repositorySnapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_snapshot_last_unix",
		Help:      "Unix timestamp of the last review queue snapshot",
	})

	m.repositorySnapshotCount = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_snapshot_count_total",
		Help:      "Total number of review queue snapshots published",
	})

	m.repositorySnapshotLastDurationMs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_snapshot_last_duration_milliseconds",
		Help:      "Duration of the last review queue snapshot rebuild",
	})

	// HTTP performance
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total errors by component and error type",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total errors by type and severity",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total errors by endpoint, method and error type",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of failed operations by component and error type",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System performance
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Decision path helpers.

// RecordDecision increments the decision counter for an outcome.
func RecordDecision(outcome string) {
	globalManager.decisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordDecisionDuplicate increments the duplicate transactions counter.
func RecordDecisionDuplicate() {
	globalManager.decisionsDuplicate.Inc()
}

// RecordDecisionFallback increments the fallback decisions counter.
func RecordDecisionFallback() {
	globalManager.decisionsFallback.Inc()
}

// RecordDecisionDegraded increments the degraded decisions counter.
func RecordDecisionDegraded() {
	globalManager.decisionsDegraded.Inc()
}

// RecordDecisionError increments the fail-open decisions counter.
func RecordDecisionError() {
	globalManager.decisionsError.Inc()
}

// RecordDecisionLatency records end-to-end decision latency in milliseconds.
func RecordDecisionLatency(latencyMs float64) {
	globalManager.decisionLatency.Observe(latencyMs)
}

// RecordFeatureFetchLatency records feature fetch latency in milliseconds.
func RecordFeatureFetchLatency(latencyMs float64) {
	globalManager.featureFetchLatency.Observe(latencyMs)
}

// RecordOracleLatency records oracle call latency in milliseconds.
func RecordOracleLatency(latencyMs float64) {
	globalManager.oracleLatency.Observe(latencyMs)
}

// RecordOracleFailure increments the oracle failure counter.
func RecordOracleFailure() {
	globalManager.oracleFailures.Inc()
}

// Case lifecycle helpers.

// RecordCaseOpened increments the opened cases counter.
func RecordCaseOpened() {
	globalManager.casesOpened.Inc()
}

// RecordCaseResolved increments the resolved cases counter for a label.
func RecordCaseResolved(label string) {
	globalManager.casesResolved.WithLabelValues(label).Inc()
}

// RecordCaseTransition increments the transition counter for a from/to pair.
func RecordCaseTransition(from, to string) {
	globalManager.caseTransitions.WithLabelValues(from, to).Inc()
}

// RecordSLABreach increments the SLA breach counter.
func RecordSLABreach() {
	globalManager.slaBreaches.Inc()
}

// RecordEscalation increments the escalation counter.
func RecordEscalation() {
	globalManager.escalations.Inc()
}

// RecordSeniorRouting increments the senior-queue routing counter.
func RecordSeniorRouting() {
	globalManager.seniorRoutings.Inc()
}

// RecordStaleTimerFire increments the discarded stale timer counter.
func RecordStaleTimerFire() {
	globalManager.staleTimerFires.Inc()
}

// UpdateOpenCases sets the open case gauge.
func UpdateOpenCases(count int) {
	globalManager.openCases.Set(float64(count))
}

// UpdateArchivedCases sets the archived case gauge.
func UpdateArchivedCases(count int) {
	globalManager.archivedCases.Set(float64(count))
}

// UpdateReviewQueueDepth sets the review queue depth gauge.
func UpdateReviewQueueDepth(depth int) {
	globalManager.reviewQueueLen.Set(float64(depth))
}

// Feedback helpers.

// RecordFeedbackPublished increments the published feedback counter.
func RecordFeedbackPublished() {
	globalManager.feedbackPublished.Inc()
}

// RecordFeedbackDuplicate increments the duplicate resolution counter.
func RecordFeedbackDuplicate() {
	globalManager.feedbackDuplicate.Inc()
}

// RecordFeedbackRetry increments the publish retry counter.
func RecordFeedbackRetry() {
	globalManager.feedbackRetries.Inc()
}

// RecordFeedbackDeadLettered increments the dead-letter counter.
func RecordFeedbackDeadLettered() {
	globalManager.feedbackDeadLettered.Inc()
}

// Monitor helpers.

// UpdateDriftScore sets the PSI gauge for the latest window.
func UpdateDriftScore(psi float64) {
	globalManager.driftScore.Set(psi)
}

// UpdateWindowLatencyPercentiles sets the latest window p95/p99 gauges.
func UpdateWindowLatencyPercentiles(p95, p99 float64) {
	globalManager.windowP95.Set(p95)
	globalManager.windowP99.Set(p99)
}

// RecordMonitorWindow increments the evaluated windows counter.
func RecordMonitorWindow() {
	globalManager.monitorWindows.Inc()
}

// RecordAlert increments the alert counter for a kind and severity.
func RecordAlert(kind, severity string) {
	globalManager.alertsPublished.WithLabelValues(kind, severity).Inc()
}

// Queue helpers.

// UpdateQueueSize sets the current size gauge for a topic.
func UpdateQueueSize(topic string, size int) {
	globalManager.queueSize.WithLabelValues(topic).Set(float64(size))
}

// UpdateQueueCapacity sets the capacity gauge for a topic.
func UpdateQueueCapacity(topic string, capacity int) {
	globalManager.queueCapacity.WithLabelValues(topic).Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter for a topic.
func RecordQueueEnqueue(topic string) {
	globalManager.queueEnqueues.WithLabelValues(topic).Inc()
}

// RecordQueueDequeue increments the dequeue counter for a topic.
func RecordQueueDequeue(topic string) {
	globalManager.queueDequeues.WithLabelValues(topic).Inc()
}

// RecordQueueEnqueueError increments the failed enqueue counter for a topic.
func RecordQueueEnqueueError(topic, reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(topic, reason).Inc()
}

// Worker helpers.

// UpdateWorkerActiveCount sets the active worker gauge.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-event worker latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Repository helpers.

// UpdateRepositoryRecordsTotal sets the total case records gauge.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecordsTotal.Set(float64(count))
}

// RecordRepositoryUpdateLatency records case store update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records case store query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordRepositorySnapshotRebuildDuration records snapshot rebuild duration.
func RecordRepositorySnapshotRebuildDuration(ms float64) {
	globalManager.repositorySnapshotRebuildDuration.Observe(ms)
}

// UpdateRepositorySnapshotLastUnix sets the last snapshot timestamp gauge.
func UpdateRepositorySnapshotLastUnix(unix float64) {
	globalManager.repositorySnapshotLastUnix.Set(unix)
}

// IncrementRepositorySnapshotCount increments the snapshot counter.
func IncrementRepositorySnapshotCount() {
	globalManager.repositorySnapshotCount.Inc()
}

// UpdateRepositorySnapshotLastDurationMs sets the last rebuild duration gauge.
func UpdateRepositorySnapshotLastDurationMs(ms float64) {
	globalManager.repositorySnapshotLastDurationMs.Set(ms)
}

// HTTP helpers.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Detailed error helpers.

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for a specific endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of a failed operation.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System helpers.

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry for serving /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
