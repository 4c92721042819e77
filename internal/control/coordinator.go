// Package control wires detection, reporting, and remediation into one
// coordinator and owns the application lifecycle.
package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/remedy/internal/core/domain"
	"github.com/vietddude/remedy/internal/detect"
	"github.com/vietddude/remedy/internal/infra/storage"
	"github.com/vietddude/remedy/internal/metrics"
	"github.com/vietddude/remedy/internal/remedy"
	"github.com/vietddude/remedy/internal/report"

	redisclient "github.com/vietddude/remedy/internal/infra/redis"
)

// Phase is the coordinator's remediation lifecycle state.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseReporting   Phase = "reporting"
	PhaseRemediating Phase = "remediating"
	PhaseExhausted   Phase = "exhausted"
)

// FixTransport posts manual fix-all requests to the remediation service.
type FixTransport interface {
	FixAll(ctx context.Context, sessionID string, report *domain.ErrorReport) (*domain.FixResponse, error)
}

// EventConn is the remediation event connection.
type EventConn interface {
	Connect(ctx context.Context)
	Close() error
	IsConnected() bool
}

// Journal records incidents for later inspection. Optional.
type Journal interface {
	AppendIncident(ctx context.Context, sessionID string, inc redisclient.Incident) error
}

// CoordinatorConfig bundles the coordinator's collaborators.
type CoordinatorConfig struct {
	SessionID  string
	Dedup      *detect.Deduplicator
	ContextBuf *detect.ContextBuffer
	Pending    *detect.PendingBuffer
	Reporter   *report.Reporter
	Transport  FixTransport
	Conn       EventConn
	Budget     *remedy.Budget
	Repo       storage.ErrorRepository
	Journal    Journal
}

// Coordinator routes classified errors into the report pipeline and reacts to
// remediation lifecycle events. All mutating entry points are safe for
// concurrent use.
type Coordinator struct {
	sessionID  string
	dedup      *detect.Deduplicator
	contextBuf *detect.ContextBuffer
	pending    *detect.PendingBuffer
	reporter   *report.Reporter
	transport  FixTransport
	conn       EventConn
	budget     *remedy.Budget
	repo       storage.ErrorRepository
	journal    Journal
	log        *slog.Logger

	mu            sync.RWMutex
	phase         Phase
	fixing        bool
	serverRunning bool
}

// NewCoordinator creates a coordinator from its collaborators.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	c := &Coordinator{
		sessionID:  cfg.SessionID,
		dedup:      cfg.Dedup,
		contextBuf: cfg.ContextBuf,
		pending:    cfg.Pending,
		reporter:   cfg.Reporter,
		transport:  cfg.Transport,
		conn:       cfg.Conn,
		budget:     cfg.Budget,
		repo:       cfg.Repo,
		journal:    cfg.Journal,
		log:        slog.Default(),
		phase:      PhaseIdle,
	}
	c.budget.SetOnReset(c.onBudgetReset)
	c.reporter.SetOnFixFailed(func(err error) {
		c.log.Warn("Report delivery failed", "error", err)
		c.appendJournal(redisclient.Incident{Kind: "report_failed", Message: err.Error()})
	})
	return c
}

// Start begins background work: dedup eviction and the event connection.
// The eviction loop runs until ctx is cancelled; Start itself returns once
// the connection attempt is under way.
func (c *Coordinator) Start(ctx context.Context) {
	go c.dedup.Start(ctx)
	c.conn.Connect(ctx)
}

// Stop tears down timers and the event connection.
func (c *Coordinator) Stop() {
	c.reporter.Stop()
	c.budget.Stop()
	if err := c.conn.Close(); err != nil {
		c.log.Warn("Failed to close event connection", "error", err)
	}
}

// DetectAndReport classifies one raw output line. Every line lands in the
// context buffer; only reportable classifications enter the error pipeline.
func (c *Coordinator) DetectAndReport(line string) {
	c.contextBuf.Append(line)
	metrics.LinesObserved.Inc()

	cls := detect.Classify(line)
	if !cls.Reportable() {
		return
	}
	c.ReportError(cls.Source, cls.Severity, line)
}

// ReportError records a classified error and schedules a debounced report.
// Duplicates within the dedup window are dropped. Explicit callers may attach
// ErrorDetails (file position, stack, request context); classifier output
// never does.
func (c *Coordinator) ReportError(source domain.ErrorSource, severity domain.Severity, message string, details ...domain.ErrorDetails) {
	if c.dedup.Suppress(source, message) {
		metrics.DuplicatesSuppressed.Inc()
		return
	}

	// New error activity interrupts a pending stabilization countdown.
	c.budget.CancelStabilization()

	c.pending.Add(source, severity, message)
	metrics.ErrorsDetected.WithLabelValues(string(source), string(severity)).Inc()

	err := &domain.ClassifiedError{
		ID:        uuid.NewString(),
		Source:    source,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now(),
	}
	if len(details) > 0 {
		d := details[0]
		err.File = d.File
		err.Line = d.Line
		err.Column = d.Column
		err.Stack = d.Stack
		err.URL = d.URL
		err.Status = d.Status
		err.Method = d.Method
	}
	if saveErr := c.saveError(err); saveErr != nil {
		c.log.Warn("Failed to persist error", "error", saveErr)
	}
	c.appendJournal(redisclient.Incident{
		Kind:     "error_detected",
		Source:   string(source),
		Severity: string(severity),
		Message:  message,
	})

	c.reporter.Schedule()
	c.advanceOnError()
}

// ForwardNow flushes the pending batch immediately, skipping the quiet period.
func (c *Coordinator) ForwardNow(ctx context.Context) error {
	return c.reporter.ForwardNow(ctx)
}

// FixAllErrors sends every unresolved error for remediation. This is the
// manual path: it does not consume the automatic retry budget.
func (c *Coordinator) FixAllErrors(ctx context.Context) (*domain.FixResponse, error) {
	unresolved, err := c.repo.Unresolved(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.PendingError, 0, len(unresolved))
	for _, e := range unresolved {
		entries = append(entries, domain.PendingError{
			Source:    e.Source,
			Severity:  e.Severity,
			Message:   e.Message,
			Timestamp: e.Timestamp,
		})
	}

	resp, err := c.transport.FixAll(ctx, c.sessionID, c.reporter.Compose(entries))
	if err != nil {
		return nil, err
	}

	if resp.Success {
		if _, markErr := c.repo.MarkAllResolved(ctx); markErr != nil {
			c.log.Warn("Failed to mark errors resolved", "error", markErr)
		}
		c.dedup.Clear()
		c.pending.Clear()
	}
	return resp, nil
}

// ResetRetryCount manually clears the remediation budget.
func (c *Coordinator) ResetRetryCount() {
	c.budget.Reset()
	c.onBudgetReset()
}

// SetServerRunning records dev-server state. A clean startup arms the
// stabilization countdown that eventually clears the retry budget.
func (c *Coordinator) SetServerRunning(running bool) {
	c.mu.Lock()
	c.serverRunning = running
	c.mu.Unlock()

	if running {
		c.budget.ArmStabilization()
	}
}

// SetCurrentCommand records the command shipped with each report.
func (c *Coordinator) SetCurrentCommand(cmd string) {
	c.reporter.SetCommand(cmd)
}

// HandleFixEvent reacts to one remediation lifecycle event.
func (c *Coordinator) HandleFixEvent(ev domain.FixEvent) {
	metrics.FixEvents.WithLabelValues(string(ev.Type)).Inc()
	c.appendJournal(redisclient.Incident{Kind: string(ev.Type), Message: ev.Reason})

	switch ev.Type {
	case domain.FixStarted:
		n := c.budget.RecordAttempt()
		metrics.FixAttempts.Set(float64(n))
		c.mu.Lock()
		c.fixing = true
		c.phase = PhaseRemediating
		c.mu.Unlock()
		c.log.Info("Remediation started", "attempt", n)

	case domain.FixCompleted:
		c.finishFix()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := c.repo.MarkAllResolved(ctx); err != nil {
			c.log.Warn("Failed to mark errors resolved", "error", err)
		}
		c.log.Info("Remediation completed",
			"patches", ev.PatchesApplied, "files", len(ev.FilesModified))

	case domain.FixFailed:
		c.finishFix()
		c.log.Warn("Remediation failed", "reason", ev.Reason, "error", ev.Error)

	case domain.RebuildCompleted:
		c.budget.ArmStabilization()
		c.log.Info("Rebuild completed, stabilization armed")

	default:
		c.log.Debug("Ignoring unknown fix event", "type", ev.Type)
	}
}

// finishFix clears fixing state and the dedup set so the next build's output
// is classified fresh.
func (c *Coordinator) finishFix() {
	c.dedup.Clear()
	c.pending.Clear()

	c.mu.Lock()
	c.fixing = false
	if c.budget.Exhausted() {
		c.phase = PhaseExhausted
	} else {
		c.phase = PhaseIdle
	}
	c.mu.Unlock()
}

func (c *Coordinator) advanceOnError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.budget.Exhausted():
		c.phase = PhaseExhausted
	case c.fixing:
		// stays remediating
	default:
		c.phase = PhaseReporting
	}
}

func (c *Coordinator) onBudgetReset() {
	metrics.FixAttempts.Set(0)

	c.mu.Lock()
	if c.phase == PhaseExhausted {
		c.phase = PhaseIdle
	}
	c.mu.Unlock()
	c.log.Info("Retry budget reset")
}

func (c *Coordinator) saveError(e *domain.ClassifiedError) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.repo.Save(ctx, e)
}

func (c *Coordinator) appendJournal(inc redisclient.Incident) {
	if c.journal == nil {
		return
	}
	inc.Timestamp = time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.journal.AppendIncident(ctx, c.sessionID, inc); err != nil {
		c.log.Debug("Failed to journal incident", "error", err)
	}
}

// Phase returns the current lifecycle phase.
func (c *Coordinator) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// IsFixing reports whether a remediation run is in flight.
func (c *Coordinator) IsFixing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fixing
}

// IsConnected reports whether the event connection is open.
func (c *Coordinator) IsConnected() bool {
	return c.conn.IsConnected()
}

// MaxRetriesReached reports whether the automatic retry budget is spent.
func (c *Coordinator) MaxRetriesReached() bool {
	return c.budget.Exhausted()
}

// FixAttemptCount returns attempts consumed in the current incident.
func (c *Coordinator) FixAttemptCount() int {
	return c.budget.Attempts()
}

// PendingCount returns the number of buffered, unreported errors.
func (c *Coordinator) PendingCount() int {
	return c.pending.Len()
}

// Errors returns all unresolved errors, newest first.
func (c *Coordinator) Errors(ctx context.Context) ([]*domain.ClassifiedError, error) {
	return c.repo.Unresolved(ctx)
}

// ErrorCounts returns unresolved error counts grouped by source.
func (c *Coordinator) ErrorCounts(ctx context.Context) (map[domain.ErrorSource]int, error) {
	return c.repo.Counts(ctx)
}
