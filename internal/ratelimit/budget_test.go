package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAcquireDecrementsRemainingWithoutBlocking(t *testing.T) {
	b := New(10, 0)
	if err := b.Acquire(context.Background(), 3); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	remaining, _ := b.Snapshot()
	if remaining != 7 {
		t.Errorf("expected remaining=7, got %d", remaining)
	}
}

func TestObserveOverridesLocalEstimate(t *testing.T) {
	b := New(10, 0)
	resetAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.Observe(2, resetAt)

	remaining, got := b.Snapshot()
	if remaining != 2 {
		t.Errorf("expected server-observed remaining=2, got %d", remaining)
	}
	if !got.Equal(resetAt) {
		t.Errorf("expected resetAt=%v, got %v", resetAt, got)
	}
}

func TestAcquireBlocksUntilResetThenRefills(t *testing.T) {
	b := New(5, 0)
	b.jitter = 0
	fakeNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fakeNow }
	b.resetAt = fakeNow.Add(50 * time.Millisecond)
	b.remaining = 2

	done := make(chan error, 1)
	go func() {
		done <- b.Acquire(context.Background(), 4)
	}()

	select {
	case err := <-done:
		t.Fatalf("expected Acquire to block until reset, returned early with err=%v", err)
	case <-time.After(20 * time.Millisecond):
	}

	b.mu.Lock()
	fakeNow = fakeNow.Add(60 * time.Millisecond)
	b.mu.Unlock()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Acquire returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after reset passed")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	b := New(1, 0)
	b.remaining = 0
	b.resetAt = time.Now().Add(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Acquire(ctx, 1) }()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Acquire to return an error on cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after context cancellation")
	}
}
