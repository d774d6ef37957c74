// Package errors provides domain-specific error types and sentinel errors
// for the gateway core. The taxonomy separates permanent failures (never
// retried) from transient ones (retried with backoff).
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrSignatureInvalid indicates webhook signature verification failed.
	// Maps to HTTP 401 at the webhook boundary. Never retried.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrRateLimited indicates the local rate limiter denied a permit
	// within the allowed wait. Surfaced as backpressure, not retried by
	// the dispatcher.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrReplyHandleExpired indicates the reply token's validity window
	// elapsed. Permanent, never retried.
	ErrReplyHandleExpired = errors.New("reply token expired")

	// ErrReplyHandleConsumed indicates the reply token was already used.
	// Permanent, never retried.
	ErrReplyHandleConsumed = errors.New("reply token already consumed")

	// ErrContentTooLarge indicates inbound media exceeded its size or
	// duration bound at decode time.
	ErrContentTooLarge = errors.New("message content exceeds limits")

	// ErrCredentialRefreshFailed indicates all refresh attempts for the
	// channel access token failed. Operational alarm; the operator must
	// rotate the channel secret.
	ErrCredentialRefreshFailed = errors.New("credential refresh failed")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError represents a structural violation in an outbound message
// (cardinality bound, text length) caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// DecodeError represents a malformed event inside a webhook batch.
// It carries the batch index so callers can report partial failures while
// the remaining events still proceed.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode event[%d]: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a decode error for the event at the given index.
func NewDecodeError(index int, err error) *DecodeError {
	return &DecodeError{Index: index, Err: err}
}
