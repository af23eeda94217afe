// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricName sanitizes serviceName into a valid Prometheus name component
// ([a-zA-Z_:][a-zA-Z0-9_:]*) — an operator-supplied SERVICE_NAME like
// "queue-engine" would otherwise panic promauto's registration.
func metricName(serviceName string) string {
	return strings.ReplaceAll(serviceName, "-", "_")
}

// HTTPMetrics instruments the HTTP API surface.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates HTTP metrics for a service.
func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	name := metricName(serviceName)
	return &HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (m *HTTPMetrics) Record(method, path, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// EngineMetrics instruments the queue engine's own operations.
type EngineMetrics struct {
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	ConflictRetries    prometheus.Counter
	EntriesEnqueued    prometheus.Counter
	ActionsApplied     *prometheus.CounterVec
	RestructuresRun    prometheus.Counter
	EntriesRepositioned prometheus.Counter
	NotificationsSent  prometheus.Counter
	NotificationsFailed prometheus.Counter
}

// NewEngineMetrics creates the engine's business metrics.
func NewEngineMetrics(serviceName string) *EngineMetrics {
	name := metricName(serviceName)
	return &EngineMetrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_engine_operations_total",
				Help: "Total number of engine operations, by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_engine_operation_duration_seconds",
				Help:    "Engine operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ConflictRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: name + "_engine_conflict_retries_total",
				Help: "Total number of transaction-conflict retries",
			},
		),
		EntriesEnqueued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: name + "_queue_entries_enqueued_total",
				Help: "Total number of queue entries created",
			},
		),
		ActionsApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_queue_actions_applied_total",
				Help: "Total number of queue actions applied, by action",
			},
			[]string{"action"},
		),
		RestructuresRun: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: name + "_queue_restructures_total",
				Help: "Total number of restructure passes run",
			},
		),
		EntriesRepositioned: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: name + "_queue_entries_repositioned_total",
				Help: "Total number of queue entries updated by a restructure",
			},
		),
		NotificationsSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: name + "_notifications_sent_total",
				Help: "Total number of push notifications delivered",
			},
		),
		NotificationsFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: name + "_notifications_failed_total",
				Help: "Total number of push notifications in failed delivery attempts",
			},
		),
	}
}

// Observe records the duration and outcome of an engine operation.
func (m *EngineMetrics) Observe(operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// NotificationSent and NotificationFailed satisfy notifier.Metrics.
func (m *EngineMetrics) NotificationSent()   { m.NotificationsSent.Inc() }
func (m *EngineMetrics) NotificationFailed() { m.NotificationsFailed.Inc() }
