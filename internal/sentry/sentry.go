// Package sentry wraps the Sentry Go SDK for error tracking.
// It is the alarm channel for operational failures that need a human:
// credential refresh exhaustion and send-retry exhaustion.
package sentry

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Sentry configuration.
type Config struct {
	// Enabled toggles the integration. When false, Initialize is a no-op.
	Enabled bool

	// DSN is the Sentry project DSN.
	DSN string

	// Environment identifies the deployment environment (e.g., "production", "staging").
	Environment string

	// Release identifies the application release version.
	Release string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64
}

// Initialize sets up the Sentry SDK. Disabled or empty-DSN configs return nil
// without initializing anything.
func Initialize(cfg Config) error {
	if !cfg.Enabled || cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		AttachStacktrace: true,
	})
}

// CaptureError reports an error with an alarm tag so alert rules can route it.
// Safe to call when Sentry is not initialized (the SDK drops the event).
func CaptureError(err error, alarm string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("alarm", alarm)
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
