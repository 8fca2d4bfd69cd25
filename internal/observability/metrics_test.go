package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCountersAndHandler(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/api/buyers", "200", 20*time.Millisecond)
	m.IncApproval("approved")
	m.IncApproval("approved")
	m.IncStageMove(2, 1)

	if got := testutil.ToFloat64(m.approvals.WithLabelValues("approved")); got != 2 {
		t.Fatalf("approvals=%v", got)
	}
	if got := testutil.ToFloat64(m.stageMoves.WithLabelValues("back")); got != 1 {
		t.Fatalf("back moves=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `buyerdesk_http_requests_total{method="GET",route="/api/buyers",status="200"} 1`) {
		t.Fatalf("request counter missing from exposition:\n%s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.IncDraft("buyer", "completed")
	m.RealtimeClientInc()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("nil handler code=%d", rec.Code)
	}
}
