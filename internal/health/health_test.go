package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/remedy/internal/core/domain"
)

// =============================================================================
// Mocks
// =============================================================================

type stubSource struct {
	connected bool
	fixing    bool
	attempts  int
	exhausted bool
	pending   int
	counts    map[domain.ErrorSource]int
	countsErr error
}

func (s *stubSource) IsConnected() bool       { return s.connected }
func (s *stubSource) IsFixing() bool          { return s.fixing }
func (s *stubSource) FixAttemptCount() int    { return s.attempts }
func (s *stubSource) MaxRetriesReached() bool { return s.exhausted }
func (s *stubSource) PendingCount() int       { return s.pending }
func (s *stubSource) ErrorCounts(ctx context.Context) (map[domain.ErrorSource]int, error) {
	return s.counts, s.countsErr
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	monitor := NewMonitor("sess-1", &stubSource{connected: true})

	report := monitor.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.Status)
	}
}

func TestMonitor_DegradedWhenDisconnected(t *testing.T) {
	monitor := NewMonitor("sess-1", &stubSource{connected: false})

	report := monitor.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
}

func TestMonitor_DegradedWithUnresolvedErrors(t *testing.T) {
	monitor := NewMonitor("sess-1", &stubSource{
		connected: true,
		counts:    map[domain.ErrorSource]int{domain.SourceBuild: 2},
	})

	report := monitor.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.Unresolved[domain.SourceBuild] != 2 {
		t.Errorf("unresolved = %v", report.Unresolved)
	}
}

func TestMonitor_CriticalWhenBudgetExhausted(t *testing.T) {
	monitor := NewMonitor("sess-1", &stubSource{connected: true, exhausted: true, attempts: 3})

	report := monitor.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("expected critical, got %s", report.Status)
	}
	if report.FixAttempts != 3 {
		t.Errorf("fix attempts = %d", report.FixAttempts)
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	monitor := NewMonitor("sess-1", &stubSource{connected: true, exhausted: true})
	srv := NewServer(monitor, 0)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	if rec.Code != 503 {
		t.Errorf("status code = %d, want 503 for critical", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != string(StatusCritical) {
		t.Errorf("body status = %q", body["status"])
	}
}

func TestServer_DetailedEndpoint(t *testing.T) {
	monitor := NewMonitor("sess-9", &stubSource{connected: true, pending: 4})
	srv := NewServer(monitor, 0)

	req := httptest.NewRequest("GET", "/health/detailed", nil)
	rec := httptest.NewRecorder()
	srv.handleDetailed(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status code = %d", rec.Code)
	}
	var report SessionHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.SessionID != "sess-9" || report.PendingErrors != 4 {
		t.Errorf("report = %+v", report)
	}
}
