package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBackendCall(t *testing.T) {
	before := testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("test-backend", "generate", "error"))
	ObserveBackendCall("test-backend", "generate", false, 20*time.Millisecond)
	after := testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("test-backend", "generate", "error"))
	if after-before != 1 {
		t.Fatalf("expected one error observation, got %v", after-before)
	}
}

func TestObserveCall(t *testing.T) {
	ObserveCall("tools", "metrics_test_tool", true)
	ObserveCall("tools", "metrics_test_tool", true)
	if got := testutil.ToFloat64(ToolCallsTotal.WithLabelValues("tools", "metrics_test_tool", "success")); got != 2 {
		t.Fatalf("got %v want 2", got)
	}
}

func TestHandlerExposesMetricsAndHealth(t *testing.T) {
	ObserveJobStatus("queued")
	h := Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "askpro_job_status_observations_total") {
		t.Fatalf("metrics output missing job status counter")
	}
}
