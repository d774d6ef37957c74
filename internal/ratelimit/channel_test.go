package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
)

func TestChannelTryAcquire(t *testing.T) {
	t.Parallel()

	// 600/min ≈ 10/s sustained, burst 20.
	c := NewChannelLimiter(600, time.Minute, time.Second)
	if !c.TryAcquire() {
		t.Error("TryAcquire() = false on fresh limiter")
	}
}

func TestChannelWindowQuota(t *testing.T) {
	t.Parallel()

	c := NewChannelLimiter(2, time.Hour, 10*time.Millisecond)
	_ = c.TryAcquire()
	_ = c.TryAcquire()

	if c.TryAcquire() {
		t.Error("TryAcquire() = true past window quota")
	}
	if err := c.Acquire(context.Background()); !errors.Is(err, cgerrors.ErrRateLimited) {
		t.Errorf("Acquire() = %v, want ErrRateLimited", err)
	}
}

func TestChannelAcquireBoundedWait(t *testing.T) {
	t.Parallel()

	// Tiny sustained rate so the bucket cannot refill within maxWait.
	c := NewChannelLimiter(10, time.Hour, 30*time.Millisecond)
	// Drain the burst allowance.
	for c.TryAcquire() {
	}

	start := time.Now()
	err := c.Acquire(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, cgerrors.ErrRateLimited) {
		t.Errorf("Acquire() = %v, want ErrRateLimited", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Acquire() blocked %v, wait should be bounded", elapsed)
	}
}

func TestChannelAcquireTimeoutKeepsWindowQuota(t *testing.T) {
	t.Parallel()

	// Burst 1: the first call takes the only bucket token, the second
	// times out waiting. The timed-out call must not consume window
	// quota it never used.
	c := NewChannelLimiter(2, time.Hour, 20*time.Millisecond)
	if err := c.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() = %v, want nil", err)
	}
	if got := c.Remaining(); got != 1 {
		t.Fatalf("Remaining() = %d after one acquire, want 1", got)
	}

	if err := c.Acquire(context.Background()); !errors.Is(err, cgerrors.ErrRateLimited) {
		t.Fatalf("second Acquire() = %v, want ErrRateLimited", err)
	}
	if got := c.Remaining(); got != 1 {
		t.Errorf("Remaining() = %d after timed-out acquire, want 1", got)
	}
}

func TestChannelAcquireSucceedsAfterShortWait(t *testing.T) {
	t.Parallel()

	// 120/min = 2/s: a token appears well within the 2s wait budget.
	c := NewChannelLimiter(120, time.Minute, 2*time.Second)
	for c.TryAcquire() {
	}

	if err := c.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() = %v, want nil after refill", err)
	}
}

func TestChannelRemaining(t *testing.T) {
	t.Parallel()

	c := NewChannelLimiter(100, time.Hour, time.Second)
	_ = c.TryAcquire()

	if got := c.Remaining(); got != 99 {
		t.Errorf("Remaining() = %d, want 99", got)
	}
}
