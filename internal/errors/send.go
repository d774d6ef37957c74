// Package errors provides error types for outbound send classification.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// SendError represents a failed outbound call to the provider API.
// Classification drives the dispatcher's retry decision: transient errors
// are retried with backoff, permanent ones fail immediately.
type SendError struct {
	StatusCode int    // HTTP status from the provider, 0 for network errors
	Attempts   int    // attempts made before giving up
	Body       string // truncated provider error body, for logs
	Err        error  // underlying error, if any
}

func (e *SendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider send failed (status=%d, attempts=%d): %s", e.StatusCode, e.Attempts, e.Body)
	}
	return fmt.Sprintf("provider send failed (attempts=%d): %v", e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Permanent reports whether the error must not be retried.
// 400 (invalid payload) and 401 (after the single refresh retry the
// dispatcher already performed) are permanent, as are expired or consumed
// reply tokens.
func (e *SendError) Permanent() bool {
	if errors.Is(e.Err, ErrReplyHandleExpired) || errors.Is(e.Err, ErrReplyHandleConsumed) {
		return true
	}
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return true
	}
	return false
}

// Transient reports whether the error is expected to succeed on retry:
// network failures, 5xx, and provider-side 429.
func (e *SendError) Transient() bool {
	if e.Permanent() {
		return false
	}
	if e.StatusCode == 0 {
		return true // network error
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewSendError creates a send error for a provider response.
func NewSendError(statusCode, attempts int, body string, err error) *SendError {
	return &SendError{
		StatusCode: statusCode,
		Attempts:   attempts,
		Body:       body,
		Err:        err,
	}
}

// SendFailed wraps a transient SendError whose retry budget is exhausted.
// It is distinct from the underlying error so callers can detect "we tried
// everything" and trigger the fallback notification path.
type SendFailed struct {
	Last *SendError
}

func (e *SendFailed) Error() string {
	return fmt.Sprintf("all send attempts exhausted: %v", e.Last)
}

func (e *SendFailed) Unwrap() error {
	return e.Last
}
