package detect

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
)

func TestDeduplicator_SuppressWithinWindow(t *testing.T) {
	d := NewDeduplicator(5 * time.Second)

	if d.Suppress(domain.SourceBrowser, "TypeError: x is not a function") {
		t.Error("first report should not be suppressed")
	}
	if !d.Suppress(domain.SourceBrowser, "TypeError: x is not a function") {
		t.Error("identical report within window should be suppressed")
	}
	if d.Suppress(domain.SourceBuild, "TypeError: x is not a function") {
		t.Error("same message from a different source is a new key")
	}
}

func TestDeduplicator_ReadmitAfterEviction(t *testing.T) {
	d := NewDeduplicator(5 * time.Second)

	d.Suppress(domain.SourceBackend, "panic: boom")
	d.Clear()

	if d.Suppress(domain.SourceBackend, "panic: boom") {
		t.Error("pair should be re-admitted after the eviction interval")
	}
}

func TestDeduplicator_KeyUsesMessagePrefix(t *testing.T) {
	d := NewDeduplicator(5 * time.Second)

	prefix := strings.Repeat("a", keyPrefixLen)
	d.Suppress(domain.SourceBackend, prefix+" tail one")

	// Same 100-char prefix, different tail: treated as a duplicate.
	if !d.Suppress(domain.SourceBackend, prefix+" tail two") {
		t.Error("messages sharing the key prefix should collide")
	}

	// Different prefix is never a false positive.
	if d.Suppress(domain.SourceBackend, "b"+prefix) {
		t.Error("a genuinely new message must not be suppressed")
	}
}

func TestDeduplicator_EvictionLoop(t *testing.T) {
	d := NewDeduplicator(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	d.Suppress(domain.SourceNetwork, "fetch failed")
	time.Sleep(60 * time.Millisecond)

	if d.Suppress(domain.SourceNetwork, "fetch failed") {
		t.Error("key should have been evicted by the timer")
	}
}
