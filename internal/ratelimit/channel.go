package ratelimit

import (
	"context"
	"errors"
	"time"

	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
)

// ChannelLimiter governs all outbound provider calls for one channel.
// It layers a rolling-window quota (the plan's capacity per window) under
// a token bucket that smooths bursts to the sustained per-second rate.
type ChannelLimiter struct {
	bucket  *Limiter
	window  *SlidingWindowCounter
	maxWait time.Duration
}

// NewChannelLimiter creates a limiter for a plan admitting capacity calls
// per window. Acquire blocks up to maxWait for a bucket token.
func NewChannelLimiter(capacity int, window, maxWait time.Duration) *ChannelLimiter {
	perSecond := float64(capacity) / window.Seconds()
	burst := perSecond * 2
	if burst < 1 {
		burst = 1
	}

	return &ChannelLimiter{
		bucket:  New(burst, perSecond),
		window:  NewSlidingWindowCounter(capacity, window),
		maxWait: maxWait,
	}
}

// TryAcquire attempts to take a permit without blocking.
func (c *ChannelLimiter) TryAcquire() bool {
	if c.window.Remaining() == 0 {
		return false
	}
	if !c.bucket.Allow() {
		return false
	}
	return c.window.Allow()
}

// Acquire takes a permit, blocking up to the configured maxWait for the
// token bucket. A denied window quota or an expired wait returns
// ErrRateLimited; the caller surfaces it as backpressure, not a retry.
//
// The window slot is reserved only after a bucket token is obtained:
// a timed-out wait must not burn plan quota the caller never used.
func (c *ChannelLimiter) Acquire(ctx context.Context) error {
	if c.window.Remaining() == 0 {
		return cgerrors.ErrRateLimited
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()

	if err := c.bucket.Wait(waitCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return cgerrors.ErrRateLimited
		}
		return err
	}

	if !c.window.Allow() {
		return cgerrors.ErrRateLimited
	}
	return nil
}

// Remaining returns the approximate remaining window quota.
func (c *ChannelLimiter) Remaining() int {
	return c.window.Remaining()
}
