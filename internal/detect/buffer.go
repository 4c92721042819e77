package detect

import (
	"strings"
	"sync"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
)

// ContextBuffer keeps the most recent raw output lines, ignored or not.
// Shipped verbatim with each batch report; full-fidelity context matters more
// than noise-avoidance here.
type ContextBuffer struct {
	mu    sync.Mutex
	lines []string
	cap   int
}

// NewContextBuffer creates a buffer holding up to capacity lines.
func NewContextBuffer(capacity int) *ContextBuffer {
	return &ContextBuffer{cap: capacity}
}

// Append adds a line, evicting the oldest when full.
func (b *ContextBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.cap {
		b.lines = b.lines[len(b.lines)-b.cap:]
	}
}

// Join returns the buffered lines joined with newlines, oldest first.
func (b *ContextBuffer) Join() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

// Len returns the number of buffered lines.
func (b *ContextBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// PendingBuffer holds classified errors awaiting the next batch flush.
type PendingBuffer struct {
	mu      sync.Mutex
	entries []domain.PendingError
	cap     int
}

// NewPendingBuffer creates a buffer holding up to capacity entries.
func NewPendingBuffer(capacity int) *PendingBuffer {
	return &PendingBuffer{cap: capacity}
}

// Add appends an entry, evicting the oldest when full.
func (b *PendingBuffer) Add(source domain.ErrorSource, severity domain.Severity, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, domain.PendingError{
		Source:    source,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now(),
	})
	if len(b.entries) > b.cap {
		b.entries = b.entries[len(b.entries)-b.cap:]
	}
}

// Drain returns all entries and clears the buffer. The in-flight batch is
// considered consumed regardless of the report outcome.
func (b *PendingBuffer) Drain() []domain.PendingError {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.entries
	b.entries = nil
	return out
}

// Clear discards all entries.
func (b *PendingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

// Len returns the number of buffered entries.
func (b *PendingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
