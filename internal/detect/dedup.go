package detect

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
)

// keyPrefixLen bounds the message portion of a dedup key.
const keyPrefixLen = 100

// Deduplicator suppresses repeated (source, message-prefix) pairs for the
// duration of one eviction window. The whole set is cleared on a timer rather
// than per-key expiry: an occasional early re-admission is acceptable, a
// missed new error is not, so the key always includes the message prefix.
type Deduplicator struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	window time.Duration
}

// NewDeduplicator creates a deduplicator with the given eviction window.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		seen:   make(map[string]struct{}),
		window: window,
	}
}

// Start runs the eviction loop until ctx is cancelled.
func (d *Deduplicator) Start(ctx context.Context) {
	ticker := time.NewTicker(d.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Clear()
		}
	}
}

// Suppress reports whether this (source, message) pair was already seen in the
// current window, recording it otherwise.
func (d *Deduplicator) Suppress(source domain.ErrorSource, message string) bool {
	key := dedupKey(source, message)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// Clear evicts the entire set.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]struct{})
}

// Size returns the number of keys in the current window.
func (d *Deduplicator) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func dedupKey(source domain.ErrorSource, message string) string {
	if len(message) > keyPrefixLen {
		message = message[:keyPrefixLen]
	}
	return string(source) + ":" + message
}
