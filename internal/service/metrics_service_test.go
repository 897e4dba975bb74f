package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRecords(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/registrations", http.StatusCreated, 15*time.Millisecond)
	m.RecordEnrollment(operationRegister, "ok")
	m.RecordEnrollment(operationRegister, "ALREADY_REGISTERED")
	m.RecordEnrollment(operationRegister, "ok")
	m.ObserveLockWait(operationRegister, time.Millisecond)
	m.RecordMigrationResult("encrypted")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.enrollmentTotal.WithLabelValues(operationRegister, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodPost, "/api/v1/registrations", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.migrationResults.WithLabelValues("encrypted")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "enrollment_operations_total")
	assert.Contains(t, w.Body.String(), "enrollment_pair_lock_wait_seconds")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordEnrollment(operationCancel, "ok")
	m.RecordDecryptFailure()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
