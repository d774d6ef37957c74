package outbound

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// backoff computes retry delays: base × 2^attempt, capped, with ±25%
// jitter to avoid thundering herd against a recovering provider.
type backoff struct {
	base time.Duration
	cap  time.Duration
}

// delay returns the wait before retry number attempt (0-based).
func (b backoff) delay(attempt int) time.Duration {
	d := time.Duration(float64(b.base) * math.Pow(2, float64(attempt)))
	if d > b.cap || d <= 0 {
		d = b.cap
	}

	// Jitter in [-25%, +25%]: shrink to 75% then add up to 50% back.
	halfDelay := int64(d) / 2
	if halfDelay == 0 {
		halfDelay = 1
	}
	jitterBig, err := rand.Int(rand.Reader, big.NewInt(halfDelay))
	if err != nil {
		jitterBig = big.NewInt(0)
	}
	return d - d/4 + time.Duration(jitterBig.Int64())
}

// sleep waits for d, respecting context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
