package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
)

// StatusSource exposes the coordinator state the monitor reports on.
type StatusSource interface {
	IsConnected() bool
	IsFixing() bool
	FixAttemptCount() int
	MaxRetriesReached() bool
	PendingCount() int
	ErrorCounts(ctx context.Context) (map[domain.ErrorSource]int, error)
}

// Monitor aggregates health status from the coordinator and storage.
type Monitor struct {
	sessionID  string
	source     StatusSource
	lastCheck  time.Time
	lastReport SessionHealth
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(sessionID string, source StatusSource) *Monitor {
	return &Monitor{
		sessionID: sessionID,
		source:    source,
	}
}

// CheckHealth snapshots the session health.
func (m *Monitor) CheckHealth(ctx context.Context) SessionHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid hammering storage
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.Status != "" {
		return m.lastReport
	}

	report := SessionHealth{
		SessionID:       m.sessionID,
		Status:          StatusHealthy,
		Connected:       m.source.IsConnected(),
		Fixing:          m.source.IsFixing(),
		FixAttempts:     m.source.FixAttemptCount(),
		BudgetExhausted: m.source.MaxRetriesReached(),
		PendingErrors:   m.source.PendingCount(),
	}

	counts, err := m.source.ErrorCounts(ctx)
	if err == nil {
		report.Unresolved = counts
	} else {
		report.Status = StatusDegraded
	}

	unresolved := 0
	for _, n := range counts {
		unresolved += n
	}

	// Evaluate status (worst case wins)
	if report.BudgetExhausted {
		report.Status = StatusCritical
	} else if !report.Connected || unresolved > 0 {
		report.Status = StatusDegraded
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
