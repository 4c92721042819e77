package remedy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
)

type fakeWS struct {
	inbox     chan any // domain.FixEvent or error
	closeOnce sync.Once
}

func newFakeWS() *fakeWS {
	return &fakeWS{inbox: make(chan any, 16)}
}

func (f *fakeWS) ReadJSON(v any) error {
	item, ok := <-f.inbox
	if !ok {
		return errors.New("connection closed")
	}
	if err, isErr := item.(error); isErr {
		return err
	}
	*(v.(*domain.FixEvent)) = item.(domain.FixEvent)
	return nil
}

func (f *fakeWS) Close() error {
	f.closeOnce.Do(func() { close(f.inbox) })
	return nil
}

type recordingHandler struct {
	mu     sync.Mutex
	events []domain.FixEvent
}

func (h *recordingHandler) HandleFixEvent(ev domain.FixEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestReconnectDelay(t *testing.T) {
	base := 2000 * time.Millisecond
	want := []time.Duration{
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		32000 * time.Millisecond,
	}
	for attempt, expected := range want {
		if got := reconnectDelay(base, attempt); got != expected {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, got, expected)
		}
	}
}

func TestConn_DispatchesEvents(t *testing.T) {
	ws := newFakeWS()
	handler := &recordingHandler{}
	c := NewConn("ws://test/errors/ws/s1", handler, time.Millisecond, 5)
	c.dial = func(ctx context.Context, url string) (wsConn, error) { return ws, nil }

	c.Connect(context.Background())
	waitFor(t, c.IsConnected, "never connected")

	ws.inbox <- domain.FixEvent{Type: domain.FixStarted}
	ws.inbox <- domain.FixEvent{Type: domain.FixCompleted, PatchesApplied: 1}

	waitFor(t, func() bool { return handler.count() == 2 }, "events not dispatched")

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if handler.events[0].Type != domain.FixStarted {
		t.Errorf("first event = %s", handler.events[0].Type)
	}
	if handler.events[1].PatchesApplied != 1 {
		t.Errorf("patches = %d", handler.events[1].PatchesApplied)
	}

	_ = c.Close()
}

func TestConn_ConnectIsIdempotent(t *testing.T) {
	var dials atomic.Int32
	c := NewConn("ws://test", &recordingHandler{}, time.Millisecond, 5)
	c.dial = func(ctx context.Context, url string) (wsConn, error) {
		dials.Add(1)
		return newFakeWS(), nil
	}

	ctx := context.Background()
	c.Connect(ctx)
	c.Connect(ctx)
	c.Connect(ctx)

	waitFor(t, c.IsConnected, "never connected")
	// A connect request while already connecting or connected is a no-op.
	if got := dials.Load(); got != 1 {
		t.Errorf("dial count = %d, want 1", got)
	}

	c.Connect(ctx)
	time.Sleep(10 * time.Millisecond)
	if got := dials.Load(); got != 1 {
		t.Errorf("dial count after connected no-op = %d, want 1", got)
	}

	_ = c.Close()
}

func TestConn_ReconnectsThenGivesUp(t *testing.T) {
	var dials atomic.Int32
	c := NewConn("ws://test", &recordingHandler{}, time.Millisecond, 2)
	c.dial = func(ctx context.Context, url string) (wsConn, error) {
		dials.Add(1)
		return nil, errors.New("refused")
	}

	c.Connect(context.Background())

	// Initial dial plus 2 scheduled retries, then permanent disconnect.
	waitFor(t, func() bool { return dials.Load() == 3 }, "expected 3 dials")
	time.Sleep(30 * time.Millisecond)
	if got := dials.Load(); got != 3 {
		t.Errorf("dial count = %d, want 3 (no attempts past the bound)", got)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", c.State())
	}

	_ = c.Close()
}

func TestConn_AttemptResetsOnOpen(t *testing.T) {
	var dials atomic.Int32
	c := NewConn("ws://test", &recordingHandler{}, time.Millisecond, 5)
	c.dial = func(ctx context.Context, url string) (wsConn, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("refused")
		}
		return newFakeWS(), nil
	}

	c.Connect(context.Background())
	waitFor(t, c.IsConnected, "never connected")

	if got := c.ReconnectAttempt(); got != 0 {
		t.Errorf("attempt = %d, want 0 after successful open", got)
	}

	_ = c.Close()
}

func TestConn_ReconnectsAfterDrop(t *testing.T) {
	var dials atomic.Int32
	conns := make(chan *fakeWS, 2)
	c := NewConn("ws://test", &recordingHandler{}, time.Millisecond, 5)
	c.dial = func(ctx context.Context, url string) (wsConn, error) {
		dials.Add(1)
		ws := newFakeWS()
		conns <- ws
		return ws, nil
	}

	c.Connect(context.Background())
	first := <-conns
	waitFor(t, c.IsConnected, "never connected")

	// Abnormal close: the supervisor must schedule a new transport.
	first.inbox <- errors.New("websocket: close 1006 (abnormal closure)")

	waitFor(t, func() bool { return dials.Load() == 2 }, "no reconnect after drop")
	waitFor(t, c.IsConnected, "never reconnected")

	_ = c.Close()
}

func TestConn_CloseStopsReconnects(t *testing.T) {
	var dials atomic.Int32
	c := NewConn("ws://test", &recordingHandler{}, 5*time.Millisecond, 5)
	c.dial = func(ctx context.Context, url string) (wsConn, error) {
		dials.Add(1)
		return nil, errors.New("refused")
	}

	c.Connect(context.Background())
	waitFor(t, func() bool { return dials.Load() >= 1 }, "never dialed")

	_ = c.Close()
	settled := dials.Load()
	time.Sleep(40 * time.Millisecond)
	if got := dials.Load(); got != settled {
		t.Errorf("dials after Close = %d, want %d (half-closed transport must not reconnect)", got, settled)
	}
}
