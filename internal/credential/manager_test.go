package credential

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
	"github.com/yuchenlin/chatgate-go/internal/logger"
	"github.com/yuchenlin/chatgate-go/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeIssuer struct {
	mu      sync.Mutex
	calls   atomic.Int64
	cred    Credential
	err     error
	failFor int // fail this many calls before succeeding
}

func (f *fakeIssuer) Issue(ctx context.Context) (Credential, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil && (f.failFor == 0 || int(n) <= f.failFor) {
		return Credential{}, f.err
	}
	return f.cred, nil
}

func newTestManager(t *testing.T, issuer Issuer, now func() time.Time) *Manager {
	t.Helper()
	return NewManager(ManagerConfig{
		Issuer:      issuer,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		Logger:      logger.NewWithWriter("error", io.Discard),
		Metrics:     metrics.New(prometheus.NewRegistry()),
		Now:         now,
	})
}

func TestFresh(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := Credential{Token: "t", IssuedAt: now, ExpiresAt: now.Add(30 * 24 * time.Hour)}

	if !c.Fresh(now, safetyMargin(c)) {
		t.Error("month-long credential should be fresh")
	}
	if c.Fresh(now.Add(30*24*time.Hour-time.Minute), safetyMargin(c)) {
		t.Error("nearly expired credential should not be fresh")
	}
	if (Credential{}).Fresh(now, time.Hour) {
		t.Error("zero credential should never be fresh")
	}
}

func TestSafetyMargin(t *testing.T) {
	t.Parallel()

	now := time.Now()

	// 30-day validity: 10% = 72h > 1h floor.
	long := Credential{IssuedAt: now, ExpiresAt: now.Add(30 * 24 * time.Hour)}
	if got := safetyMargin(long); got != 72*time.Hour {
		t.Errorf("margin = %v, want 72h", got)
	}

	// 5-hour validity: 10% = 30min, floor lifts it to 1h.
	short := Credential{IssuedAt: now, ExpiresAt: now.Add(5 * time.Hour)}
	if got := safetyMargin(short); got != time.Hour {
		t.Errorf("margin = %v, want 1h floor", got)
	}
}

func TestGetTokenCachesWhileFresh(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer := &fakeIssuer{cred: Credential{
		Token: "tok-1", IssuedAt: now, ExpiresAt: now.Add(30 * 24 * time.Hour),
	}}
	m := newTestManager(t, issuer, func() time.Time { return now })

	for i := 0; i < 5; i++ {
		cred, err := m.GetToken(context.Background())
		if err != nil {
			t.Fatalf("GetToken() error: %v", err)
		}
		if cred.Token != "tok-1" {
			t.Fatalf("Token = %q, want tok-1", cred.Token)
		}
	}

	if got := issuer.calls.Load(); got != 1 {
		t.Errorf("issuer calls = %d, want 1 (cached afterwards)", got)
	}
}

func TestGetTokenSingleRefreshUnderConcurrency(t *testing.T) {
	t.Parallel()

	// Token expires in 5 minutes; margin for a 1h-validity token is 1h,
	// so every caller sees it as expiring.
	start := time.Now()
	issuer := &fakeIssuer{cred: Credential{
		Token: "tok-new", IssuedAt: start, ExpiresAt: start.Add(30 * 24 * time.Hour),
	}}

	var mu sync.Mutex
	now := start
	m := newTestManager(t, issuer, func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	// Seed an expiring credential.
	m.mu.Lock()
	m.current = Credential{Token: "tok-old", IssuedAt: start.Add(-55 * time.Minute), ExpiresAt: start.Add(5 * time.Minute)}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, err := m.GetToken(context.Background())
			if err != nil {
				t.Errorf("GetToken() error: %v", err)
				return
			}
			if cred.Token != "tok-new" {
				t.Errorf("Token = %q, want tok-new", cred.Token)
			}
		}()
	}
	wg.Wait()

	if got := issuer.calls.Load(); got != 1 {
		t.Errorf("issuer calls = %d, want exactly 1 shared refresh", got)
	}
}

func TestForceRefreshBypassesCache(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer := &fakeIssuer{cred: Credential{
		Token: "tok-2", IssuedAt: now, ExpiresAt: now.Add(30 * 24 * time.Hour),
	}}
	m := newTestManager(t, issuer, func() time.Time { return now })

	if _, err := m.GetToken(context.Background()); err != nil {
		t.Fatalf("GetToken() error: %v", err)
	}
	if _, err := m.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh() error: %v", err)
	}

	if got := issuer.calls.Load(); got != 2 {
		t.Errorf("issuer calls = %d, want 2 (force bypasses cache)", got)
	}
}

func TestRefreshRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer := &fakeIssuer{
		cred:    Credential{Token: "tok", IssuedAt: now, ExpiresAt: now.Add(30 * 24 * time.Hour)},
		err:     errors.New("temporary"),
		failFor: 2,
	}
	m := newTestManager(t, issuer, func() time.Time { return now })

	cred, err := m.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken() error: %v", err)
	}
	if cred.Token != "tok" {
		t.Errorf("Token = %q, want tok", cred.Token)
	}
	if got := issuer.calls.Load(); got != 3 {
		t.Errorf("issuer calls = %d, want 3 (two failures + success)", got)
	}
}

func TestRefreshExhaustionIsFatal(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{err: errors.New("invalid client secret")}
	m := newTestManager(t, issuer, time.Now)

	_, err := m.GetToken(context.Background())
	if !errors.Is(err, cgerrors.ErrCredentialRefreshFailed) {
		t.Errorf("GetToken() = %v, want ErrCredentialRefreshFailed", err)
	}
	if got := issuer.calls.Load(); got != 3 {
		t.Errorf("issuer calls = %d, want maxAttempts=3", got)
	}
}
