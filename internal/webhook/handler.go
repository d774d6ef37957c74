// Package webhook implements the inbound HTTP boundary: signature
// verification, batch decoding, and asynchronous event processing.
// The webhook response never waits for handlers; the provider only needs
// to know the batch was accepted.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yuchenlin/chatgate-go/internal/bot"
	"github.com/yuchenlin/chatgate-go/internal/ctxutil"
	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
	"github.com/yuchenlin/chatgate-go/internal/event"
	"github.com/yuchenlin/chatgate-go/internal/logger"
	"github.com/yuchenlin/chatgate-go/internal/metrics"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
	"github.com/yuchenlin/chatgate-go/internal/signature"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

// maxBodyBytes bounds the webhook request body. Batches are capped at
// MaxEvents anyway; anything larger is hostile.
const maxBodyBytes = 2 << 20

// Sender delivers the reply for one event. *outbound.Dispatcher
// implements it.
type Sender interface {
	Send(ctx context.Context, req outbound.SendRequest) error
}

// HandlerConfig holds configuration for creating a Handler.
type HandlerConfig struct {
	Secret    []byte
	Processor *bot.Processor
	Sender    Sender

	MaxEvents           int // events beyond this are dropped with a warning
	MaxMessagesPerReply int
	EventTimeout        time.Duration

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Handler terminates the provider's webhook calls.
type Handler struct {
	secret    []byte
	processor *bot.Processor
	sender    Sender

	maxEvents           int
	maxMessagesPerReply int
	eventTimeout        time.Duration

	logger  *logger.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

// verify checks the delivery signature against the channel secret.
// A mismatch yields ErrSignatureInvalid so callers can map it to a
// status code.
func (h *Handler) verify(body []byte, header string) error {
	if !signature.Verify(body, header, h.secret) {
		return fmt.Errorf("%w: %s header does not match body", cgerrors.ErrSignatureInvalid, SignatureHeader)
	}
	return nil
}

// NewHandler creates a webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		secret:              cfg.Secret,
		processor:           cfg.Processor,
		sender:              cfg.Sender,
		maxEvents:           cfg.MaxEvents,
		maxMessagesPerReply: cfg.MaxMessagesPerReply,
		eventTimeout:        cfg.EventTimeout,
		logger:              cfg.Logger.WithModule("webhook"),
		metrics:             cfg.Metrics,
	}
}

// Handle verifies, decodes, and acknowledges one webhook delivery.
// Events are processed asynchronously after the 200 is sent; a bad
// signature is 401, an unparseable body is 400.
func (h *Handler) Handle(c *gin.Context) {
	deliveryID := uuid.NewString()
	log := h.logger.WithField("delivery_id", deliveryID)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.metrics.RecordWebhook("read_error")
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.verify(body, c.GetHeader(SignatureHeader)); err != nil {
		h.metrics.RecordWebhook("bad_signature")
		log.WithError(err).Warn("Webhook signature verification failed")
		status := http.StatusBadRequest
		if errors.Is(err, cgerrors.ErrSignatureInvalid) {
			status = http.StatusUnauthorized
		}
		c.Status(status)
		return
	}

	batch, err := event.Decode(body)
	if err != nil {
		h.metrics.RecordWebhook("bad_payload")
		log.WithError(err).Warn("Webhook body is not a valid batch")
		c.Status(http.StatusBadRequest)
		return
	}

	for _, decErr := range batch.Errors {
		h.metrics.RecordDecoded("invalid", "error")
		log.WithError(decErr).Warn("Skipping undecodable event in batch")
	}

	events := batch.Events
	if h.maxEvents > 0 && len(events) > h.maxEvents {
		log.WithField("dropped", len(events)-h.maxEvents).Warn("Webhook batch exceeds cap; dropping excess events")
		events = events[:h.maxEvents]
	}
	for i := range events {
		h.metrics.RecordDecoded(string(events[i].Type), "ok")
	}

	h.metrics.RecordWebhook("accepted")
	c.Status(http.StatusOK)

	// Detach from the request context: processing outlives the response.
	ctx := ctxutil.WithDeliveryID(context.Background(), deliveryID)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for i := range events {
			h.processEvent(ctx, &events[i])
		}
	}()
}

// processEvent runs one event through the router and delivers its reply.
// Events in a batch run in array order; a panic in one handler does not
// take down the batch. The delivery ID reaches these records through the
// context handler.
func (h *Handler) processEvent(ctx context.Context, ev *event.Event) {
	log := h.logger.WithField("event_id", ev.ID)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).ErrorContext(ctx, "Event handler panicked")
		}
		h.metrics.RecordEvent(string(ev.Type), time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, h.eventTimeout)
	defer cancel()

	msgs, err := h.processor.Process(ctx, ev)
	if err != nil {
		log.WithError(err).ErrorContext(ctx, "Event handler failed")
		return
	}
	if len(msgs) == 0 || ev.ReplyToken == "" {
		return
	}

	if h.maxMessagesPerReply > 0 && len(msgs) > h.maxMessagesPerReply {
		log.WithField("dropped", len(msgs)-h.maxMessagesPerReply).
			WarnContext(ctx, "Reply exceeds per-call message cap; dropping excess")
		msgs = msgs[:h.maxMessagesPerReply]
	}

	err = h.sender.Send(ctx, outbound.SendRequest{
		EventID:    ev.ID,
		EventType:  string(ev.Type),
		ReplyToken: ev.ReplyToken,
		Messages:   msgs,
	})
	if err != nil {
		log.WithError(err).ErrorContext(ctx, "Reply delivery failed")
	}
}

// Shutdown waits for in-flight event processing to finish, or for ctx to
// expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
