package bot

import (
	"context"
	"strings"

	"golang.org/x/text/width"

	"github.com/yuchenlin/chatgate-go/internal/ctxutil"
	"github.com/yuchenlin/chatgate-go/internal/event"
	"github.com/yuchenlin/chatgate-go/internal/logger"
	"github.com/yuchenlin/chatgate-go/internal/metrics"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
	"github.com/yuchenlin/chatgate-go/internal/ratelimit"
)

// ProcessorConfig holds configuration for creating a Processor.
type ProcessorConfig struct {
	Registry *Registry
	Fallback ConversationalHandler // optional, plain-text messages
	Greeting string                // optional, sent on follow and join

	UserLimiter *ratelimit.PerKeyLimiter // optional, per-user burst guard
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

// Processor routes one decoded event to its handler and returns the
// reply messages, possibly none. It never sends; the webhook layer owns
// delivery.
type Processor struct {
	registry *Registry
	fallback ConversationalHandler
	greeting string
	limiter  *ratelimit.PerKeyLimiter
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewProcessor creates a processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.UserLimiter != nil {
		m := cfg.Metrics
		cfg.UserLimiter.OnDrop(func() { m.RecordRateLimiterDrop("user") })
	}
	return &Processor{
		registry: cfg.Registry,
		fallback: cfg.Fallback,
		greeting: cfg.Greeting,
		limiter:  cfg.UserLimiter,
		logger:   cfg.Logger.WithModule("bot"),
		metrics:  cfg.Metrics,
	}
}

// Process routes the event. A nil message slice with a nil error means
// the event needs no reply.
func (p *Processor) Process(ctx context.Context, ev *event.Event) ([]outbound.Message, error) {
	// The context handler lifts these IDs into every log record below.
	ctx = ctxutil.WithUserID(ctx, ev.Source.UserID)
	ctx = ctxutil.WithChatID(ctx, ev.Source.ChatID())

	log := p.logger.WithField("event_type", string(ev.Type))

	switch ev.Type {
	case event.TypeMessage:
		return p.processMessage(ctx, log, ev)

	case event.TypeFollow, event.TypeJoin:
		if p.greeting == "" || ev.ReplyToken == "" {
			return nil, nil
		}
		return []outbound.Message{outbound.NewText(p.greeting)}, nil

	case event.TypeUnfollow, event.TypeLeave:
		// No reply token exists for these; they are observed only.
		log.InfoContext(ctx, "Conversation ended")
		return nil, nil

	case event.TypePostback:
		if ev.Postback == nil || !IsCommand(ev.Postback.Data) {
			return nil, nil
		}
		return p.dispatchCommand(ctx, ev, ev.Postback.Data)

	default:
		log.DebugContext(ctx, "Ignoring unknown event type")
		return nil, nil
	}
}

func (p *Processor) processMessage(ctx context.Context, log *logger.Logger, ev *event.Event) ([]outbound.Message, error) {
	if p.limiter != nil && !p.limiter.Allow(ev.Source.UserID) {
		log.DebugContext(ctx, "Per-user rate limit exceeded; dropping event")
		return nil, nil
	}

	if ev.Message == nil {
		return nil, nil
	}

	switch ev.Message.Type {
	case event.ContentText:
		text := strings.TrimSpace(ev.Message.Text)
		if text == "" {
			return nil, nil
		}
		if IsCommand(text) {
			return p.dispatchCommand(ctx, ev, text)
		}
		if p.fallback == nil {
			return nil, nil
		}
		return p.fallback.HandleText(ctx, ev, text)

	default:
		// Media needs no reply; the decoder already enforced bounds.
		log.DebugContext(ctx, "Ignoring non-text message content")
		return nil, nil
	}
}

func (p *Processor) dispatchCommand(ctx context.Context, ev *event.Event, text string) ([]outbound.Message, error) {
	keyword, args := splitCommand(text)

	h, ok := p.registry.Resolve(keyword)
	if !ok {
		p.metrics.RecordCommand("unknown")
		p.logger.WithField("keyword", keyword).DebugContext(ctx, "Unknown command")
		return []outbound.Message{
			outbound.NewText("Unknown command. Send /help to see what I can do."),
		}, nil
	}

	p.metrics.RecordCommand(NormalizeKeyword(keyword))
	return h.Handle(ctx, ev, args)
}

// splitCommand separates the keyword from its arguments. Fullwidth input
// is narrowed so "／ｈｅｌｐ" dispatches like "/help".
func splitCommand(text string) (keyword, args string) {
	narrowed := width.Narrow.String(strings.TrimSpace(text))
	keyword, args, _ = strings.Cut(narrowed, " ")
	return keyword, strings.TrimSpace(args)
}
