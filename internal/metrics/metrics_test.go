package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("/v1/calc/payment", "POST", 200, 5*time.Millisecond)
	m.ObserveRequest("/v1/calc/payment", "POST", 200, 7*time.Millisecond)
	m.RiskCache(true)
	m.RiskCache(false)
	m.RiskCache(false)
	m.LoanEvent("defaulted", 3)
	m.LoanEvent("defaulted", 0)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/v1/calc/payment", "POST", "200")); got != 2 {
		t.Fatalf("requests got=%v want=2", got)
	}
	if got := testutil.ToFloat64(m.riskCache.WithLabelValues("miss")); got != 2 {
		t.Fatalf("cache misses got=%v want=2", got)
	}
	if got := testutil.ToFloat64(m.loans.WithLabelValues("defaulted")); got != 3 {
		t.Fatalf("defaults got=%v want=3", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("/", "GET", 200, time.Millisecond)
	m.RiskCache(true)
	m.LoanEvent("originated", 1)
	m.Generated(1, 1)
	m.ObserveTick(time.Second, 0)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Generated(4, 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tycoon_applicants_generated_total 4") {
		t.Fatalf("missing applicant counter in output:\n%s", rec.Body.String())
	}
}
