package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.EarningCredited(true)
	m.EarningCredited(false)
	m.EarningCredited(false)
	m.WithdrawalTransitioned("paid")
	m.SubscriptionsExpired(3)
	m.SubscriptionsExpired(0)

	if got := testutil.ToFloat64(m.earningsCredited.WithLabelValues("replayed")); got != 2 {
		t.Fatalf("replayed credits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.subscriptionsExpired); got != 3 {
		t.Fatalf("expired = %v, want 3", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.EarningCredited(true)
	m.WithdrawalRequested("accepted")
	m.SignatureFailed()
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.SignatureFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "carewallet_payment_signature_failures_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
