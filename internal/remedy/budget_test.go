package remedy

import (
	"testing"
	"time"
)

func TestBudget_Exhaustion(t *testing.T) {
	b := NewBudget(3, 10*time.Second)
	defer b.Stop()

	for i := 1; i <= 3; i++ {
		if b.Exhausted() {
			t.Fatalf("exhausted after %d attempts", i-1)
		}
		if got := b.RecordAttempt(); got != i {
			t.Errorf("attempt count = %d, want %d", got, i)
		}
	}

	if !b.Exhausted() {
		t.Error("budget should be exhausted after 3 attempts")
	}
}

func TestBudget_StabilizationResets(t *testing.T) {
	b := NewBudget(3, 20*time.Millisecond)
	defer b.Stop()

	b.RecordAttempt()
	b.RecordAttempt()
	b.RecordAttempt()

	reset := make(chan struct{})
	b.SetOnReset(func() { close(reset) })
	b.ArmStabilization()

	select {
	case <-reset:
	case <-time.After(time.Second):
		t.Fatal("stabilization timer never fired")
	}

	if b.Exhausted() {
		t.Error("budget should be cleared after a quiet stabilization interval")
	}
	if b.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", b.Attempts())
	}
}

func TestBudget_CancelPreservesCounter(t *testing.T) {
	b := NewBudget(3, 20*time.Millisecond)
	defer b.Stop()

	b.RecordAttempt()
	b.ArmStabilization()
	if !b.StabilizationArmed() {
		t.Fatal("timer should be armed")
	}

	// A reportable error arrives before the interval elapses.
	b.CancelStabilization()
	if b.StabilizationArmed() {
		t.Fatal("timer should be cancelled")
	}

	time.Sleep(50 * time.Millisecond)
	if b.Attempts() != 1 {
		t.Errorf("attempts = %d, want 1 (counter preserved)", b.Attempts())
	}
}

func TestBudget_StaleTimerFiringAfterCancelPreservesCounter(t *testing.T) {
	b := NewBudget(3, time.Hour)
	defer b.Stop()

	b.RecordAttempt()
	b.ArmStabilization()
	gen := b.stabGen

	// An error arrives at the same instant the timer fires: the callback has
	// left the runtime queue but not yet taken the lock when the cancel lands.
	b.CancelStabilization()
	b.stabilize(gen)

	if b.Attempts() != 1 {
		t.Errorf("attempts = %d, want 1 (stale timer must not reset)", b.Attempts())
	}
}

func TestBudget_ManualReset(t *testing.T) {
	b := NewBudget(3, 10*time.Second)
	defer b.Stop()

	b.RecordAttempt()
	b.RecordAttempt()
	b.RecordAttempt()
	b.Reset()

	if b.Exhausted() {
		t.Error("manual reset must clear exhaustion")
	}
	if b.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", b.Attempts())
	}
}

func TestBudget_RearmRestartsInterval(t *testing.T) {
	b := NewBudget(3, 40*time.Millisecond)
	defer b.Stop()

	b.RecordAttempt()
	b.ArmStabilization()
	time.Sleep(25 * time.Millisecond)
	b.ArmStabilization() // rebuild completed again, interval restarts

	time.Sleep(25 * time.Millisecond)
	if b.Attempts() != 1 {
		t.Errorf("attempts = %d, want 1 (interval restarted, not elapsed)", b.Attempts())
	}

	time.Sleep(40 * time.Millisecond)
	if b.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0 after full quiet interval", b.Attempts())
	}
}
