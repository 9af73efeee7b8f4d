// Package metrics exposes the engine's Prometheus instrumentation behind
// package-level helpers so call sites stay one-liners.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns the metric vectors and the registry they live in.
type Manager struct {
	registry *prometheus.Registry

	ingestAccepted  prometheus.Counter
	ingestRejected  *prometheus.CounterVec
	ingestDuplicate prometheus.Counter

	conflictsDetected *prometheus.CounterVec
	gtcScores         prometheus.Histogram
	recordsTotal      prometheus.Gauge

	riskQueries      prometheus.Counter
	riskQueryLatency prometheus.Histogram

	rescoreQueueDepth prometheus.Gauge
	rescoreProcessed  prometheus.Counter
	rescoreDropped    prometheus.Counter
	rescoreErrors     prometheus.Counter
	rescoreLatency    prometheus.Histogram
	workerCount       prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
}

var defaultManager = NewManager()

// NewManager builds a Manager with a fresh registry.
func NewManager() *Manager {
	m := &Manager{registry: prometheus.NewRegistry()}

	m.ingestAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_ingest_accepted_total",
		Help: "Records accepted through validation and persisted.",
	})
	m.ingestRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_ingest_rejected_total",
		Help: "Rejected ingestion attempts by reason.",
	}, []string{"reason"})
	m.ingestDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_ingest_duplicate_total",
		Help: "Ingestion attempts answered idempotently by integrity hash.",
	})
	m.conflictsDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_conflicts_detected_total",
		Help: "Detected record conflicts by severity.",
	}, []string{"severity"})
	m.gtcScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "strata_gtc_score",
		Help:    "Distribution of computed GTC scores.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
	m.recordsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strata_records_total",
		Help: "Measurement records currently stored.",
	})
	m.riskQueries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_risk_queries_total",
		Help: "Risk assessments served.",
	})
	m.riskQueryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "strata_risk_query_latency_ms",
		Help:    "Risk query latency in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	m.rescoreQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strata_rescore_queue_depth",
		Help: "Jobs waiting in the rescore queue.",
	})
	m.rescoreProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_rescore_processed_total",
		Help: "Completed rescore jobs.",
	})
	m.rescoreDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_rescore_dropped_total",
		Help: "Rescore jobs dropped due to queue backpressure.",
	})
	m.rescoreErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_rescore_errors_total",
		Help: "Failed rescore jobs.",
	})
	m.rescoreLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "strata_rescore_latency_ms",
		Help:    "Rescore job latency in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	m.workerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strata_rescore_workers",
		Help: "Configured rescore worker goroutines.",
	})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_http_requests_total",
		Help: "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status"})
	m.httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "strata_http_request_latency_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"endpoint", "method"})
	m.systemMemory = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strata_system_memory_bytes",
		Help: "Heap bytes currently allocated.",
	})
	m.systemGoroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strata_system_goroutines",
		Help: "Live goroutine count.",
	})

	m.registry.MustRegister(
		m.ingestAccepted, m.ingestRejected, m.ingestDuplicate,
		m.conflictsDetected, m.gtcScores, m.recordsTotal,
		m.riskQueries, m.riskQueryLatency,
		m.rescoreQueueDepth, m.rescoreProcessed, m.rescoreDropped,
		m.rescoreErrors, m.rescoreLatency, m.workerCount,
		m.httpRequests, m.httpLatency,
		m.systemMemory, m.systemGoroutines,
	)
	return m
}

// GetRegistry returns the default registry for the /metrics handler.
func GetRegistry() *prometheus.Registry {
	return defaultManager.registry
}

// Ingest counters.
func RecordIngestAccepted()              { defaultManager.ingestAccepted.Inc() }
func RecordIngestRejected(reason string) { defaultManager.ingestRejected.WithLabelValues(reason).Inc() }
func RecordIngestDuplicate()             { defaultManager.ingestDuplicate.Inc() }

// Conflict and scoring observations.
func RecordConflictDetected(severity string) {
	defaultManager.conflictsDetected.WithLabelValues(severity).Inc()
}
func ObserveGTCScore(score float64) { defaultManager.gtcScores.Observe(score) }
func UpdateRecordsTotal(n int)      { defaultManager.recordsTotal.Set(float64(n)) }

// Risk query observations.
func RecordRiskQuery()                  { defaultManager.riskQueries.Inc() }
func RecordRiskQueryLatency(ms float64) { defaultManager.riskQueryLatency.Observe(ms) }

// Rescore pipeline observations.
func UpdateRescoreQueueDepth(n int)   { defaultManager.rescoreQueueDepth.Set(float64(n)) }
func RecordRescoreProcessed()         { defaultManager.rescoreProcessed.Inc() }
func RecordRescoreDropped()           { defaultManager.rescoreDropped.Inc() }
func RecordRescoreError()             { defaultManager.rescoreErrors.Inc() }
func RecordRescoreLatency(ms float64) { defaultManager.rescoreLatency.Observe(ms) }
func UpdateWorkerCount(n int)         { defaultManager.workerCount.Set(float64(n)) }

// HTTP observations.
func RecordHTTPRequest(endpoint, method, status string) {
	defaultManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}
func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	defaultManager.httpLatency.WithLabelValues(endpoint, method).Observe(ms)
}

// Runtime observations.
func UpdateSystemMemoryUsage(bytes uint64) { defaultManager.systemMemory.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(n int)     { defaultManager.systemGoroutines.Set(float64(n)) }
