package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ChargeOutcome("approved")
	m.ChargeOutcome("approved")
	m.ChargeOutcome("declined")
	m.PurchaseOutcome("reverted")
	m.Compensation("queued")
	m.BreakerState("account", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.charges.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.charges.WithLabelValues("declined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.purchases.WithLabelValues("reverted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues("queued")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.breakerState.WithLabelValues("account")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ChargeOutcome("approved")
		m.PaymentOutcome("approved")
		m.PurchaseOutcome("approved")
		m.Compensation("credited")
		m.BreakerState("account", 0)
		m.ObserveDownstream("account", "debit", "ok", time.Millisecond)
		m.ObserveHTTP(http.MethodGet, http.StatusOK, time.Millisecond)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.ObserveDownstream("transaction", "create", "error", 20*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, http.StatusCreated, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `cards_downstream_request_duration_seconds_count{operation="create",result="error",service="transaction"} 1`)
	assert.Contains(t, body, `cards_http_request_duration_seconds_count{method="POST",status="201"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
