package outbound

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yuchenlin/chatgate-go/internal/credential"
	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
	"github.com/yuchenlin/chatgate-go/internal/logger"
	"github.com/yuchenlin/chatgate-go/internal/metrics"
	"github.com/yuchenlin/chatgate-go/internal/ratelimit"
	"github.com/yuchenlin/chatgate-go/internal/sentry"
	"github.com/yuchenlin/chatgate-go/internal/storage"
)

// ReplyAPI is the provider call the dispatcher drives. *Client implements
// it; tests substitute a recording fake for dry-run sends.
type ReplyAPI interface {
	Reply(ctx context.Context, accessToken, replyToken string, payloads []map[string]any) error
}

// DeliveryRecorder persists send outcomes for reconciliation.
// *storage.DB implements it.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, d storage.Delivery) error
}

// DispatcherConfig holds configuration for creating a Dispatcher.
type DispatcherConfig struct {
	API         ReplyAPI
	Credentials *credential.Manager
	Limiter     *ratelimit.ChannelLimiter
	Store       DeliveryRecorder // optional
	Logger      *logger.Logger
	Metrics     *metrics.Metrics

	BaseDelay   time.Duration // first retry delay
	MaxDelay    time.Duration // backoff cap
	MaxAttempts int           // total attempts including the first

	MinReplyTokenLength int
}

// Dispatcher validates, rate-limits, and delivers outbound replies,
// retrying transient provider failures with exponential backoff.
type Dispatcher struct {
	api     ReplyAPI
	creds   *credential.Manager
	limiter *ratelimit.ChannelLimiter
	store   DeliveryRecorder
	logger  *logger.Logger
	metrics *metrics.Metrics

	backoff     backoff
	maxAttempts int

	minReplyTokenLength int
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		api:                 cfg.API,
		creds:               cfg.Credentials,
		limiter:             cfg.Limiter,
		store:               cfg.Store,
		logger:              cfg.Logger.WithModule("outbound"),
		metrics:             cfg.Metrics,
		backoff:             backoff{base: cfg.BaseDelay, cap: cfg.MaxDelay},
		maxAttempts:         cfg.MaxAttempts,
		minReplyTokenLength: cfg.MinReplyTokenLength,
	}
}

// SendRequest is one reply to deliver: the event that owns the reply
// token plus the messages to send.
type SendRequest struct {
	EventID    string
	EventType  string
	ReplyToken string
	Messages   []Message
}

// Send validates every message, acquires a rate-limit permit, and
// delivers the reply. A single invalid message fails the whole call with
// zero network calls. Transient provider failures are retried with
// backoff; a 401 triggers exactly one credential refresh and one retry.
// Retry exhaustion returns SendFailed and is never swallowed: it is
// logged, counted, recorded in the delivery log, and reported to the
// alarm channel.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) error {
	start := time.Now()
	log := d.logger.WithField("event_id", req.EventID)

	payloads, err := BuildPayloads(req.Messages)
	if err != nil {
		log.WithError(err).WarnContext(ctx, "Reply failed validation; nothing sent")
		d.finish(ctx, req, "validation", 0, 0, err, start)
		return err
	}

	if len(req.ReplyToken) < d.minReplyTokenLength {
		err := cgerrors.NewValidationError("replyToken", "too short to be a valid reply token")
		d.finish(ctx, req, "validation", 0, 0, err, start)
		return err
	}

	waitStart := time.Now()
	if err := d.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, cgerrors.ErrRateLimited) {
			log.WarnContext(ctx, "Outbound rate limit exceeded; dropping reply")
			d.metrics.RecordRateLimiterDrop("channel")
			d.finish(ctx, req, "rate_limited", 0, 0, err, start)
		}
		return err
	}
	d.metrics.RecordRateLimiterWait(time.Since(waitStart).Seconds())

	var refreshed bool
	attempts := 0

	for {
		attempts++

		cred, err := d.creds.GetToken(ctx)
		if err != nil {
			d.finish(ctx, req, "credential", 0, attempts, err, start)
			return err
		}

		callErr := d.api.Reply(ctx, cred.Token, req.ReplyToken, payloads)
		if callErr == nil {
			d.finish(ctx, req, "success", 0, attempts, nil, start)
			return nil
		}

		var se *cgerrors.SendError
		if !errors.As(callErr, &se) {
			se = cgerrors.NewSendError(0, attempts, "", callErr)
		}
		se.Attempts = attempts

		// One credential refresh per call: the token may have been
		// revoked underneath us. A second 401 is permanent.
		if se.StatusCode == 401 && !refreshed {
			refreshed = true
			log.WarnContext(ctx, "Provider rejected credential; refreshing once")
			if _, err := d.creds.ForceRefresh(ctx); err != nil {
				d.finish(ctx, req, "credential", se.StatusCode, attempts, err, start)
				return err
			}
			continue
		}

		// Anything not positively transient is permanent: retrying an
		// unclassified 4xx would replay a request the provider already
		// rejected.
		if !se.Transient() {
			log.WithError(se).WithField("status", se.StatusCode).ErrorContext(ctx, "Permanent send failure")
			d.finish(ctx, req, "permanent", se.StatusCode, attempts, se, start)
			return se
		}

		if attempts >= d.maxAttempts {
			failed := &cgerrors.SendFailed{Last: se}
			log.WithError(failed).WithField("attempts", attempts).ErrorContext(ctx, "Send retries exhausted")
			sentry.CaptureError(failed, "send_exhausted")
			d.finish(ctx, req, "exhausted", se.StatusCode, attempts, failed, start)
			return failed
		}

		delay := d.backoff.delay(attempts - 1)
		log.WithError(se).
			WithField("attempt", attempts).
			WithField("retry_in", delay.String()).
			WarnContext(ctx, "Transient send failure; retrying")
		d.metrics.RecordSendRetry()

		if err := sleep(ctx, delay); err != nil {
			timedOut := fmt.Errorf("%w waiting to retry: %v", cgerrors.ErrTimeout, err)
			d.finish(ctx, req, "exhausted", se.StatusCode, attempts, timedOut, start)
			return timedOut
		}
	}
}

// finish records the terminal outcome in metrics and the delivery log.
func (d *Dispatcher) finish(ctx context.Context, req SendRequest, result string, statusCode, attempts int, cause error, start time.Time) {
	elapsed := time.Since(start)
	d.metrics.RecordSend(result, elapsed.Seconds())

	if d.store == nil {
		return
	}

	errText := ""
	if cause != nil {
		errText = cause.Error()
	}

	del := storage.Delivery{
		ID:             uuid.NewString(),
		EventID:        req.EventID,
		EventType:      req.EventType,
		ReplyTokenHash: hashReplyToken(req.ReplyToken),
		Result:         result,
		StatusCode:     statusCode,
		Attempts:       attempts,
		Error:          errText,
		DurationMs:     elapsed.Milliseconds(),
	}
	if err := d.store.RecordDelivery(ctx, del); err != nil {
		d.logger.WithError(err).Warn("Failed to record delivery")
	}
}

// hashReplyToken keeps the delivery log free of usable reply tokens.
func hashReplyToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
