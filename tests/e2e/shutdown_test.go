package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/remedy/internal/control"
	"github.com/vietddude/remedy/internal/core/config"
)

func TestGracefulShutdown(t *testing.T) {
	// Memory storage, no Redis: enough to start every component
	cfg := config.AppConfig{
		Server: config.ServerConfig{Port: 0},
		API: config.APIConfig{
			BaseURL:   "http://127.0.0.1:1", // never dialed in this test
			WSBaseURL: "ws://127.0.0.1:1",
			SessionID: "shutdown-test",
			Timeout:   time.Second,
		},
		Detection: config.DetectionConfig{
			DebounceInterval: 3 * time.Second,
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

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let it run for a bit
	time.Sleep(200 * time.Millisecond)

	// Trigger shutdown
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := svc.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
