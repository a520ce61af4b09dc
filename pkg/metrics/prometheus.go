// Package metrics provides Prometheus metrics for the MMX marketing mix model service.
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

// Manager manages all Prometheus metrics for the MMX service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core Business Metrics - forecasting activity
	predictionsServed  prometheus.Counter
	predictionRows     prometheus.Counter
	evaluationsRun     prometheus.Counter
	lastEvaluationMAPE prometheus.Gauge
	predictLatency     prometheus.Histogram

	// Training Metrics - offline fit runs
	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram

	// Ingestion Metrics
	ingestFiles  prometheus.Counter
	ingestRows   prometheus.Counter
	ingestErrors *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec

	// Model State Metrics
	modelReady   prometheus.Gauge
	adstockDecay prometheus.Gauge
	featureCount prometheus.Gauge

	// System Performance Metrics
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
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mmx",
		subsystem:        "mmm",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.predictionsServed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictions_served_total",
		Help:      "Total number of prediction requests served successfully",
	})
	m.predictionRows = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_rows_total",
		Help:      "Total number of forecast rows produced",
	})
	m.evaluationsRun = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluations_run_total",
		Help:      "Total number of evaluations performed against uploaded actuals",
	})
	m.lastEvaluationMAPE = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_evaluation_mape_percent",
		Help:      "MAPE of the most recent evaluation, in percent",
	})
	m.predictLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predict_latency_ms",
		Help:      "Latency of the transform+predict path in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.trainingRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_runs_total",
		Help:      "Total number of training runs by model kind and outcome",
	}, []string{"model_kind", "outcome"})
	m.trainingDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_duration_seconds",
		Help:      "Duration of training runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	m.ingestFiles = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_files_total",
		Help:      "Total number of channel CSV files ingested",
	})
	m.ingestRows = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_rows_total",
		Help:      "Total number of dataset rows ingested",
	})
	m.ingestErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_errors_total",
		Help:      "Total number of ingestion failures by stage",
	}, []string{"stage"})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component and type",
	}, []string{"component", "error_type"})
	m.errorRateByType = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_type_total",
		Help:      "Total number of errors by type and severity",
	}, []string{"error_type", "severity"})

	m.modelReady = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_ready",
		Help:      "1 when a model artifact is loaded and serving, 0 otherwise",
	})
	m.adstockDecay = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "adstock_decay",
		Help:      "Adstock decay parameter of the loaded model artifact",
	})
	m.featureCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feature_count",
		Help:      "Number of channel features in the loaded model artifact",
	})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
	m.systemGCPauseTime = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_ms",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
}

// Package-level helpers backed by the global manager.

// RecordPredictionServed increments the served-prediction counter.
func RecordPredictionServed() {
	globalManager.predictionsServed.Inc()
}

// RecordPredictionRows adds to the forecast row counter.
func RecordPredictionRows(n int) {
	globalManager.predictionRows.Add(float64(n))
}

// RecordEvaluation records an evaluation run and its MAPE.
func RecordEvaluation(mape float64) {
	globalManager.evaluationsRun.Inc()
	globalManager.lastEvaluationMAPE.Set(mape)
}

// RecordPredictLatency observes the transform+predict latency.
func RecordPredictLatency(latencyMs float64) {
	globalManager.predictLatency.Observe(latencyMs)
}

// RecordTrainingRun records a training run outcome for a model kind.
func RecordTrainingRun(modelKind, outcome string) {
	globalManager.trainingRuns.WithLabelValues(modelKind, outcome).Inc()
}

// RecordTrainingDuration observes a training run duration.
func RecordTrainingDuration(seconds float64) {
	globalManager.trainingDuration.Observe(seconds)
}

// RecordIngestFile increments the ingested file counter.
func RecordIngestFile() {
	globalManager.ingestFiles.Inc()
}

// RecordIngestRows adds to the ingested row counter.
func RecordIngestRows(n int) {
	globalManager.ingestRows.Add(float64(n))
}

// RecordIngestError records an ingestion failure for a pipeline stage.
func RecordIngestError(stage string) {
	globalManager.ingestErrors.WithLabelValues(stage).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateModelReady flips the model readiness gauge.
func UpdateModelReady(ready bool) {
	if ready {
		globalManager.modelReady.Set(1)
		return
	}
	globalManager.modelReady.Set(0)
}

// UpdateModelInfo publishes static facts about the loaded artifact.
func UpdateModelInfo(adstockDecay float64, featureCount int) {
	globalManager.adstockDecay.Set(adstockDecay)
	globalManager.featureCount.Set(float64(featureCount))
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
