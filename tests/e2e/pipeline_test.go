package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/remedy/internal/control"
	"github.com/vietddude/remedy/internal/core/config"
	"github.com/vietddude/remedy/internal/core/domain"
)

// fakeFixService records report batches the way the remediation API would.
type fakeFixService struct {
	mu      sync.Mutex
	reports []domain.ErrorReport
}

func (f *fakeFixService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/errors/report/", func(w http.ResponseWriter, r *http.Request) {
		var rep domain.ErrorReport
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.reports = append(f.reports, rep)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (f *fakeFixService) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func TestDetectionToReportPipeline(t *testing.T) {
	fix := &fakeFixService{}
	srv := httptest.NewServer(fix.handler())
	defer srv.Close()

	cfg := config.AppConfig{
		Server: config.ServerConfig{Port: 0},
		API: config.APIConfig{
			BaseURL:   srv.URL,
			WSBaseURL: "ws://127.0.0.1:1", // no event stream in this test
			SessionID: "pipeline-test",
			Timeout:   5 * time.Second,
		},
		Detection: config.DetectionConfig{
			DebounceInterval: 50 * time.Millisecond,
			DedupWindow:      5 * time.Second,
			ContextLines:     200,
			MaxPending:       20,
		},
		Retry: config.RetryConfig{
			MaxFixAttempts:        3,
			StabilizationInterval: 10 * time.Second,
			ReconnectBaseDelay:    50 * time.Millisecond,
			MaxReconnectAttempts:  1,
		},
		Tree: config.TreeConfig{Root: t.TempDir()},
	}

	svc, err := control.NewService(cfg)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = svc.Stop(stopCtx)
	}()

	coord := svc.Coordinator()
	coord.SetCurrentCommand("npm run dev")

	// Mixed output: banners and warnings must not be reported, errors must.
	coord.DetectAndReport("> dev-server ready in 420 ms")
	coord.DetectAndReport("npm WARN deprecated left-pad@1.0.0")
	coord.DetectAndReport("TypeError: Cannot read properties of undefined (reading 'map')")
	coord.DetectAndReport("Module not found: Error: Can't resolve './missing'")
	coord.DetectAndReport("TypeError: Cannot read properties of undefined (reading 'map')") // duplicate

	deadline := time.Now().Add(3 * time.Second)
	for fix.reportCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fix.reportCount() != 1 {
		t.Fatalf("reports received = %d, want 1 debounced batch", fix.reportCount())
	}

	fix.mu.Lock()
	rep := fix.reports[0]
	fix.mu.Unlock()
	if len(rep.Errors) != 2 {
		t.Fatalf("batch size = %d, want 2 (banner ignored, duplicate suppressed): %+v", len(rep.Errors), rep.Errors)
	}
	if rep.Command != "npm run dev" {
		t.Errorf("command = %q", rep.Command)
	}
	if rep.Context == "" {
		t.Error("context buffer missing from report")
	}

	// Everything reported is also retained as unresolved.
	errs, err := coord.Errors(ctx)
	if err != nil {
		t.Fatalf("Errors: %v", err)
	}
	if len(errs) != 2 {
		t.Errorf("unresolved = %d, want 2", len(errs))
	}
}
