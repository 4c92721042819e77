// Package report batches buffered errors and ships them to the remediation
// service after a quiet period.
package report

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
	"github.com/vietddude/remedy/internal/detect"
	"github.com/vietddude/remedy/internal/metrics"
)

// Sender posts a composed batch report.
type Sender interface {
	ReportErrors(ctx context.Context, sessionID string, report *domain.ErrorReport) error
}

// TreeProvider supplies the project snapshot shipped with each report.
type TreeProvider interface {
	FileTree() []string
	RecentlyModified(maxAge time.Duration) []domain.FileChange
}

// Config holds reporter settings.
type Config struct {
	SessionID        string
	Debounce         time.Duration
	RecentFileWindow time.Duration
}

// Reporter accumulates classified errors and flushes one batch per quiet
// period. An explicit ForwardNow cancels the pending timer and flushes
// immediately, used when a command-completed signal makes waiting pointless.
type Reporter struct {
	cfg        Config
	pending    *detect.PendingBuffer
	contextBuf *detect.ContextBuffer
	sender     Sender
	tree       TreeProvider
	exhausted  func() bool
	log        *slog.Logger

	mu          sync.Mutex
	timer       *time.Timer
	command     string
	onFixFailed func(error)
	stopped     bool
}

// NewReporter creates a debounced reporter.
func NewReporter(
	cfg Config,
	pending *detect.PendingBuffer,
	contextBuf *detect.ContextBuffer,
	sender Sender,
	tree TreeProvider,
	exhausted func() bool,
) *Reporter {
	return &Reporter{
		cfg:        cfg,
		pending:    pending,
		contextBuf: contextBuf,
		sender:     sender,
		tree:       tree,
		exhausted:  exhausted,
		log:        slog.Default(),
	}
}

// SetOnFixFailed registers a callback surfaced on transport failure.
func (r *Reporter) SetOnFixFailed(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFixFailed = fn
}

// SetCommand records the last executed command, shipped with each batch.
func (r *Reporter) SetCommand(cmd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.command = cmd
}

// Command returns the last recorded command.
func (r *Reporter) Command() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.command
}

// Schedule arms or re-arms the quiet-period timer.
func (r *Reporter) Schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	if r.timer != nil {
		r.timer.Reset(r.cfg.Debounce)
		return
	}
	r.timer = time.AfterFunc(r.cfg.Debounce, func() {
		if err := r.Flush(context.Background()); err != nil {
			r.log.Warn("Debounced report failed", "error", err)
		}
	})
}

// ForwardNow cancels the pending timer and flushes immediately.
func (r *Reporter) ForwardNow(ctx context.Context) error {
	r.cancelTimer()
	return r.Flush(ctx)
}

// Stop cancels the pending timer; further schedules are ignored.
func (r *Reporter) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cancelTimer()
}

// Flush sends the buffered batch. No-op when the buffer is empty, no session
// is set, or the retry budget is exhausted. The buffer is consumed on any
// outcome; the remote service retains what it received.
func (r *Reporter) Flush(ctx context.Context) error {
	if r.cfg.SessionID == "" {
		return nil
	}
	if r.exhausted != nil && r.exhausted() {
		r.log.Debug("Flush suppressed, retry budget exhausted")
		return nil
	}

	entries := r.pending.Drain()
	if len(entries) == 0 {
		return nil
	}

	rep := r.Compose(entries)
	if err := r.sender.ReportErrors(ctx, r.cfg.SessionID, rep); err != nil {
		metrics.ReportsSent.WithLabelValues("failure").Inc()
		r.mu.Lock()
		fn := r.onFixFailed
		r.mu.Unlock()
		if fn != nil {
			fn(err)
		}
		return err
	}

	metrics.ReportsSent.WithLabelValues("success").Inc()
	r.log.Info("Reported error batch", "errors", len(entries))
	return nil
}

// Compose builds the wire report for a set of buffered entries.
func (r *Reporter) Compose(entries []domain.PendingError) *domain.ErrorReport {
	reported := make([]domain.ReportedError, 0, len(entries))
	for _, e := range entries {
		reported = append(reported, domain.ReportedError{
			Source:    e.Source,
			Type:      "auto_detected",
			Message:   e.Message,
			Severity:  e.Severity,
			Timestamp: e.Timestamp.UnixMilli(),
		})
	}

	var fileTree []string
	var modified []domain.ModifiedFile
	if r.tree != nil {
		fileTree = r.tree.FileTree()
		for _, ch := range r.tree.RecentlyModified(r.cfg.RecentFileWindow) {
			modified = append(modified, domain.ModifiedFile{
				Path:      ch.Path,
				Action:    ch.Action,
				Timestamp: ch.Timestamp.UnixMilli(),
			})
		}
	}

	return &domain.ErrorReport{
		Errors:           reported,
		Context:          r.contextBuf.Join(),
		Command:          r.Command(),
		Timestamp:        time.Now().UnixMilli(),
		FileTree:         fileTree,
		RecentlyModified: modified,
	}
}

func (r *Reporter) cancelTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
