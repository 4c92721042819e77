// Package remedy handles the negotiation with the remote remediation service.
//
// This package contains:
//   - Budget: bounds automatic remediation attempts per incident
//   - Conn: supervisor for the one persistent connection, with bounded
//     exponential reconnect
package remedy

import (
	"sync"
	"time"
)

// Budget bounds automatic remediation attempts for one incident. The counter
// only resets after a sustained error-free interval following a rebuild, or
// by explicit manual reset. A pure attempt counter would either give up too
// early on a flaky build or retry forever on a truly broken one.
type Budget struct {
	mu            sync.Mutex
	attempts      int
	max           int
	stabilization *time.Timer
	stabGen       uint64
	interval      time.Duration
	onReset       func()
}

// NewBudget creates a budget allowing max attempts, reset after a quiet
// stabilization interval.
func NewBudget(max int, interval time.Duration) *Budget {
	return &Budget{max: max, interval: interval}
}

// SetOnReset registers a callback invoked when the stabilization timer fires.
func (b *Budget) SetOnReset(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReset = fn
}

// RecordAttempt increments the attempt counter and returns the new count.
func (b *Budget) RecordAttempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts++
	return b.attempts
}

// Attempts returns the current attempt count.
func (b *Budget) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Exhausted reports whether automatic remediation is suppressed.
func (b *Budget) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts >= b.max
}

// ArmStabilization arms (or re-arms) the stabilization timer. If it fires
// without being cancelled the budget resets to zero.
func (b *Budget) ArmStabilization() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stabilization != nil {
		b.stabilization.Stop()
	}
	b.stabGen++
	gen := b.stabGen
	b.stabilization = time.AfterFunc(b.interval, func() { b.stabilize(gen) })
}

// CancelStabilization stops an armed stabilization timer. Called on every new
// reportable error: the system is not actually stable yet. Bumping the
// generation also invalidates a timer callback that already fired but has not
// taken the lock yet.
func (b *Budget) CancelStabilization() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stabGen++
	if b.stabilization != nil {
		b.stabilization.Stop()
		b.stabilization = nil
	}
}

// StabilizationArmed reports whether the timer is currently armed.
func (b *Budget) StabilizationArmed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stabilization != nil
}

// Reset unconditionally zeroes the budget. Manual override for when a human
// intervenes.
func (b *Budget) Reset() {
	b.mu.Lock()
	b.attempts = 0
	b.mu.Unlock()
}

// Stop cancels the stabilization timer on teardown.
func (b *Budget) Stop() {
	b.CancelStabilization()
}

func (b *Budget) stabilize(gen uint64) {
	b.mu.Lock()
	if gen != b.stabGen {
		b.mu.Unlock()
		return
	}
	b.attempts = 0
	b.stabilization = nil
	fn := b.onReset
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}
