package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// enrollment engine.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	enrollmentTotal  *prometheus.CounterVec
	lockWait         *prometheus.HistogramVec
	decryptFailures  prometheus.Counter
	migrationResults *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	enrollmentTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_operations_total",
		Help: "Register and cancel attempts by outcome code",
	}, []string{"operation", "outcome"})

	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enrollment_pair_lock_wait_seconds",
		Help:    "Time spent waiting for a (user, course) pair lock",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 3},
	}, []string{"operation"})

	decryptFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "phone_decrypt_failures_total",
		Help: "Stored phone values that could not be decrypted",
	})

	migrationResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phone_migration_rows_total",
		Help: "Rows handled by the phone encryption migration by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollmentTotal, lockWait, decryptFailures, migrationResults, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		enrollmentTotal:  enrollmentTotal,
		lockWait:         lockWait,
		decryptFailures:  decryptFailures,
		migrationResults: migrationResults,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordEnrollment counts one register or cancel attempt. outcome is "ok" or an error code.
func (m *MetricsService) RecordEnrollment(operation, outcome string) {
	if m == nil {
		return
	}
	m.enrollmentTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveLockWait records how long an operation waited for its pair lock.
func (m *MetricsService) ObserveLockWait(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordDecryptFailure counts a phone value that could not be decrypted.
func (m *MetricsService) RecordDecryptFailure() {
	if m == nil {
		return
	}
	m.decryptFailures.Inc()
}

// RecordMigrationResult counts one row handled by the phone migration.
func (m *MetricsService) RecordMigrationResult(result string) {
	if m == nil {
		return
	}
	m.migrationResults.WithLabelValues(result).Inc()
}
