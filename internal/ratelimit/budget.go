// Package ratelimit implements the RateBudget (spec.md §4.1): a single,
// mutex-guarded accountant for the GitHub API quota, shared by every
// fetcher worker. The server's rate-limit headers are authoritative; the
// local count is only a safety estimate used between responses.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default quotas, per spec.md §4.1.
const (
	AuthenticatedCapPerHour   = 5000
	UnauthenticatedCapPerHour = 60
)

// Budget gates outbound GitHub calls against the remote quota. Callers
// invoke Acquire before every request and Observe after every response.
type Budget struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	cap       int

	// limiter smooths bursts on top of the hourly quota via a minimum
	// inter-call spacing, independent of the quota-exhaustion wait.
	limiter *rate.Limiter

	// jitter bounds the random delay added after a reset wait, to avoid
	// every worker waking at the exact same instant.
	jitter time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// New creates a Budget with the given hourly cap (AuthenticatedCapPerHour or
// UnauthenticatedCapPerHour) and minimum spacing between calls.
func New(capPerHour int, minIntercallSpacing time.Duration) *Budget {
	b := &Budget{
		remaining: capPerHour,
		resetAt:   time.Now().Add(time.Hour),
		cap:       capPerHour,
		jitter:    2 * time.Second,
		now:       time.Now,
	}
	if minIntercallSpacing > 0 {
		b.limiter = rate.NewLimiter(rate.Every(minIntercallSpacing), 1)
	}
	return b
}

// Acquire reserves n call permits, blocking until the current hour's
// remaining permits are at least n. It also respects the minimum
// inter-call spacing limiter, if configured. Returns ctx.Err() if ctx is
// cancelled while waiting.
func (b *Budget) Acquire(ctx context.Context, n int) error {
	if b.limiter != nil {
		if err := b.limiter.WaitN(ctx, 1); err != nil {
			return err
		}
	}

	b.mu.Lock()
	for b.remaining < n {
		wait := b.resetAt.Sub(b.now())
		if wait < 0 {
			wait = 0
		}
		wait += jitterDuration(b.jitter)

		b.mu.Unlock()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		b.mu.Lock()

		if b.now().After(b.resetAt) {
			b.remaining = b.cap
			b.resetAt = b.now().Add(time.Hour)
		}
	}
	b.remaining -= n
	b.mu.Unlock()
	return nil
}

// Observe replaces the local estimate with the server's authoritative
// rate-limit header values. The server view always wins over the local
// bookkeeping.
func (b *Budget) Observe(remaining int, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = remaining
	b.resetAt = resetAt
}

// Snapshot returns the current (remaining, resetAt) for progress reporting.
func (b *Budget) Snapshot() (remaining int, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining, b.resetAt
}

func jitterDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
