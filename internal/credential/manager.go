// Package credential manages the channel access token: a renewable
// credential issued by the provider and consumed by every outbound call.
// The cached credential is the only cross-request mutable state besides
// the rate-limit counters; refresh is serialized through singleflight so
// concurrent callers observing an expiring token share one refresh.
package credential

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yuchenlin/chatgate-go/internal/errors"
	"github.com/yuchenlin/chatgate-go/internal/logger"
	"github.com/yuchenlin/chatgate-go/internal/metrics"
	"github.com/yuchenlin/chatgate-go/internal/sentry"
	"golang.org/x/sync/singleflight"
)

// Credential is an access token with its validity window.
type Credential struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Fresh reports whether the credential's remaining lifetime exceeds the
// safety margin at the given instant.
func (c Credential) Fresh(now time.Time, margin time.Duration) bool {
	return c.Token != "" && c.ExpiresAt.Sub(now) > margin
}

// Issuer obtains a new credential from the provider.
// Implemented by the outbound provider client's token endpoint.
type Issuer interface {
	Issue(ctx context.Context) (Credential, error)
}

// ManagerConfig holds configuration for creating a Manager.
type ManagerConfig struct {
	Issuer      Issuer
	MaxAttempts int           // issue attempts per refresh before alarming
	RetryDelay  time.Duration // delay between issue attempts (default: 500ms)
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time // injectable clock for tests
}

// Manager caches the current credential and refreshes it proactively.
type Manager struct {
	issuer      Issuer
	maxAttempts int
	retryDelay  time.Duration
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	mu      sync.RWMutex
	current Credential

	group singleflight.Group
}

// NewManager creates a credential manager. No token is fetched until the
// first GetToken call.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Manager{
		issuer:      cfg.Issuer,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger.WithModule("credential"),
		metrics:     cfg.Metrics,
		now:         cfg.Now,
	}
}

// safetyMargin is 10% of the credential's total validity or one hour,
// whichever is larger. A token handed to a caller always satisfies
// expiresAt > now + margin.
func safetyMargin(c Credential) time.Duration {
	margin := c.ExpiresAt.Sub(c.IssuedAt) / 10
	if margin < time.Hour {
		margin = time.Hour
	}
	return margin
}

// GetToken returns the cached credential while it is fresh, refreshing it
// otherwise. Concurrent callers seeing an expiring token block on the
// same in-flight refresh rather than issuing duplicates.
func (m *Manager) GetToken(ctx context.Context) (Credential, error) {
	m.mu.RLock()
	cur := m.current
	m.mu.RUnlock()

	if cur.Fresh(m.now(), safetyMargin(cur)) {
		return cur, nil
	}

	return m.refresh(ctx, false)
}

// ForceRefresh discards the cached credential and obtains a new one.
// Used after a 401 from the provider: the single retry the dispatcher
// performs needs a token newer than the one that was rejected.
func (m *Manager) ForceRefresh(ctx context.Context) (Credential, error) {
	return m.refresh(ctx, true)
}

func (m *Manager) refresh(ctx context.Context, force bool) (Credential, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		// A flight that just finished may have refreshed the credential
		// for us. Skip the provider call unless forced.
		if !force {
			m.mu.RLock()
			cur := m.current
			m.mu.RUnlock()
			if cur.Fresh(m.now(), safetyMargin(cur)) {
				return cur, nil
			}
		}

		cred, err := m.issue(ctx)
		if err != nil {
			return Credential{}, err
		}

		m.mu.Lock()
		m.current = cred
		m.mu.Unlock()

		m.logger.WithField("expires_at", cred.ExpiresAt).Info("Credential refreshed")
		return cred, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// issue calls the provider up to maxAttempts times. Exhaustion is the
// operational alarm: the operator must rotate the channel secret.
func (m *Manager) issue(ctx context.Context) (Credential, error) {
	var lastErr error

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		cred, err := m.issuer.Issue(ctx)
		if err == nil {
			m.metrics.RecordCredentialRefresh("success")
			return cred, nil
		}
		lastErr = err
		m.metrics.RecordCredentialRefresh("error")
		m.logger.WithError(err).WithField("attempt", attempt).Warn("Credential issue failed")

		if attempt == m.maxAttempts {
			break
		}
		select {
		case <-time.After(m.retryDelay):
		case <-ctx.Done():
			return Credential{}, ctx.Err()
		}
	}

	failure := fmt.Errorf("%w after %d attempts: %v", errors.ErrCredentialRefreshFailed, m.maxAttempts, lastErr)
	sentry.CaptureError(failure, "credential_refresh")
	m.logger.WithError(failure).Error("Credential refresh exhausted; operator must rotate the channel secret")
	return Credential{}, failure
}
