package remedy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vietddude/remedy/internal/core/domain"
	"github.com/vietddude/remedy/internal/metrics"
)

// ConnState is the lifecycle state of the remediation connection.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// EventHandler consumes inbound remediation lifecycle events. Handlers run to
// completion before the next message is read; there is no reentrancy.
type EventHandler interface {
	HandleFixEvent(ev domain.FixEvent)
}

// wsConn is the minimal surface of a websocket connection the supervisor needs.
type wsConn interface {
	ReadJSON(v any) error
	Close() error
}

// DialFunc opens a websocket connection to url.
type DialFunc func(ctx context.Context, url string) (wsConn, error)

func gorillaDial(ctx context.Context, url string) (wsConn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Conn supervises the one persistent connection to the remediation service.
// It owns the transport exclusively: Connect and Close are idempotent and
// guarded by current-state inspection, so rapid re-activation cannot produce
// duplicate sockets. The channel is receive-only from our side.
type Conn struct {
	url         string
	handler     EventHandler
	baseDelay   time.Duration
	maxAttempts int
	dial        DialFunc
	log         *slog.Logger

	mu             sync.Mutex
	state          ConnState
	attempt        int
	ws             wsConn
	reconnectTimer *time.Timer
	closed         bool
}

// NewConn creates a connection supervisor for the given websocket URL.
func NewConn(url string, handler EventHandler, baseDelay time.Duration, maxAttempts int) *Conn {
	return &Conn{
		url:         url,
		handler:     handler,
		baseDelay:   baseDelay,
		maxAttempts: maxAttempts,
		dial:        gorillaDial,
		state:       StateDisconnected,
		log:         slog.Default(),
	}
}

// Connect starts connecting if currently disconnected; a no-op while a
// transport is already connecting or connected.
func (c *Conn) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	go c.connect(ctx)
}

// Close tears the connection down permanently. No further reconnect attempts
// are scheduled.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	var err error
	if c.ws != nil {
		err = c.ws.Close()
		c.ws = nil
	}
	c.state = StateDisconnected
	metrics.ConnectionState.Set(0)
	return err
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the transport is open.
func (c *Conn) IsConnected() bool {
	return c.State() == StateConnected
}

// ReconnectAttempt returns the current attempt counter.
func (c *Conn) ReconnectAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

func (c *Conn) connect(ctx context.Context) {
	ws, err := c.dial(ctx, c.url)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if ws != nil {
			_ = ws.Close()
		}
		return
	}
	if err != nil {
		c.log.Warn("Remediation connection failed", "error", err, "attempt", c.attempt)
		c.state = StateDisconnected
		c.scheduleReconnectLocked(ctx)
		c.mu.Unlock()
		return
	}

	c.ws = ws
	c.state = StateConnected
	c.attempt = 0
	c.mu.Unlock()

	c.log.Info("Remediation connection established", "url", c.url)
	metrics.ConnectionState.Set(1)

	c.readLoop(ctx, ws)
}

// readLoop reads lifecycle events until the transport closes.
func (c *Conn) readLoop(ctx context.Context, ws wsConn) {
	for {
		var ev domain.FixEvent
		if err := ws.ReadJSON(&ev); err != nil {
			c.onClosed(ctx, err)
			return
		}
		c.handler.HandleFixEvent(ev)
	}
}

func (c *Conn) onClosed(ctx context.Context, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics.ConnectionState.Set(0)
	if c.closed {
		return
	}

	c.log.Warn("Remediation connection closed", "error", cause)
	if c.ws != nil {
		_ = c.ws.Close()
		c.ws = nil
	}
	c.state = StateDisconnected
	c.scheduleReconnectLocked(ctx)
}

// scheduleReconnectLocked arms the backoff timer. Caller holds c.mu.
func (c *Conn) scheduleReconnectLocked(ctx context.Context) {
	if c.attempt >= c.maxAttempts {
		c.log.Error("Remediation connection gave up", "attempts", c.attempt)
		return
	}

	delay := reconnectDelay(c.baseDelay, c.attempt)
	c.attempt++
	metrics.ReconnectsTotal.Inc()
	c.log.Info("Scheduling reconnect", "delay", delay, "attempt", c.attempt)

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.closed || c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()
		c.connect(ctx)
	})
}

// reconnectDelay returns baseDelay * 2^attempt.
func reconnectDelay(baseDelay time.Duration, attempt int) time.Duration {
	return baseDelay << uint(attempt)
}
