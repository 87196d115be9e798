package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// =============================================================================
// Collector Tests
// =============================================================================

func TestCollector_ObserveCall(t *testing.T) {
	c := New()

	c.ObserveCall("user.whoami", OutcomeOK, 20*time.Millisecond)
	c.ObserveCall("user.whoami", OutcomeOK, 30*time.Millisecond)
	c.ObserveCall("user.whoami", OutcomeAPIError, 10*time.Millisecond)

	if got := testutil.ToFloat64(c.calls.WithLabelValues("user.whoami", OutcomeOK)); got != 2 {
		t.Errorf("ok calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.calls.WithLabelValues("user.whoami", OutcomeAPIError)); got != 1 {
		t.Errorf("api_error calls = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.callDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestCollector_ObserveCycle(t *testing.T) {
	c := New()
	now := time.Unix(1700000000, 0)

	c.ObserveCycle(nil, 3, now)
	c.ObserveCycle(errors.New("boom"), 0, now.Add(time.Minute))

	if got := testutil.ToFloat64(c.cycles.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.cycles.WithLabelValues("error")); got != 1 {
		t.Errorf("error cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.tasksReported); got != 3 {
		t.Errorf("tasks reported = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.lastCycle); got != float64(now.Add(time.Minute).Unix()) {
		t.Errorf("last cycle = %v, want %v", got, now.Add(time.Minute).Unix())
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.ObserveCall("user.whoami", OutcomeOK, time.Millisecond)
	c.ObserveCycle(nil, 1, time.Now())
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveCall("maniphest.query", OutcomeOK, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `conduit_calls_total{method="maniphest.query",outcome="ok"} 1`) {
		t.Errorf("metrics output missing call counter:\n%s", body)
	}
}
