package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPerKeyIndependentBuckets(t *testing.T) {
	t.Parallel()

	pkl := NewPerKeyLimiter(PerKeyLimiterConfig{MaxTokens: 2, RefillRate: 0})
	defer pkl.Stop()

	pkl.Allow("user-a")
	pkl.Allow("user-a")
	if pkl.Allow("user-a") {
		t.Error("user-a should be exhausted")
	}
	if !pkl.Allow("user-b") {
		t.Error("user-b should have its own budget")
	}
}

func TestPerKeyEmptyKeyAllowed(t *testing.T) {
	t.Parallel()

	pkl := NewPerKeyLimiter(PerKeyLimiterConfig{MaxTokens: 1, RefillRate: 0})
	defer pkl.Stop()

	for i := 0; i < 10; i++ {
		if !pkl.Allow("") {
			t.Fatal("empty key must always be allowed")
		}
	}
}

func TestPerKeyOnDrop(t *testing.T) {
	t.Parallel()

	pkl := NewPerKeyLimiter(PerKeyLimiterConfig{MaxTokens: 1, RefillRate: 0})
	defer pkl.Stop()

	drops := 0
	pkl.OnDrop(func() { drops++ })

	pkl.Allow("u")
	pkl.Allow("u")
	pkl.Allow("u")

	if drops != 2 {
		t.Errorf("drops = %d, want 2", drops)
	}
}

func TestPerKeyOnDropConcurrentWithAllow(t *testing.T) {
	t.Parallel()

	pkl := NewPerKeyLimiter(PerKeyLimiterConfig{MaxTokens: 1, RefillRate: 0})
	defer pkl.Stop()

	var drops atomic.Int64
	var wg sync.WaitGroup
	wg.Add(2)

	// The callback may be installed after traffic has started; the race
	// detector verifies the handoff is synchronized.
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			pkl.Allow("u")
		}
	}()
	go func() {
		defer wg.Done()
		pkl.OnDrop(func() { drops.Add(1) })
	}()
	wg.Wait()

	pkl.Allow("u")
	if drops.Load() == 0 {
		t.Error("installed callback never observed a drop")
	}
}

func TestPerKeyCleanup(t *testing.T) {
	t.Parallel()

	pkl := NewPerKeyLimiter(PerKeyLimiterConfig{
		MaxTokens:     1,
		RefillRate:    1000, // refills instantly, so buckets are full at cleanup
		CleanupPeriod: 10 * time.Millisecond,
	})
	defer pkl.Stop()

	pkl.Allow("u1")
	pkl.Allow("u2")
	if pkl.ActiveCount() != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", pkl.ActiveCount())
	}

	time.Sleep(50 * time.Millisecond)

	if pkl.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d after cleanup, want 0", pkl.ActiveCount())
	}
}
