package logger

import (
	"context"
	"log/slog"

	"github.com/yuchenlin/chatgate-go/internal/ctxutil"
)

// ContextHandler is a slog.Handler that extracts tracing values
// (delivery ID, user ID, chat ID) from the context and adds them as
// attributes to log records.
//
// It wraps another handler so call sites using the *Context logging
// methods get these fields for free instead of chaining them manually.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a ContextHandler that wraps the provided
// handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds context values as attributes before delegating to the
// wrapped handler.
//
// Context values extracted:
// - delivery_id: webhook delivery ID for log correlation across a batch
// - user_id: provider user ID
// - chat_id: conversation ID (user, group, or room)
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if deliveryID := ctxutil.GetDeliveryID(ctx); deliveryID != "" {
		r.AddAttrs(slog.String("delivery_id", deliveryID))
	}
	if userID := ctxutil.GetUserID(ctx); userID != "" {
		r.AddAttrs(slog.String("user_id", userID))
	}
	if chatID := ctxutil.GetChatID(ctx); chatID != "" {
		r.AddAttrs(slog.String("chat_id", chatID))
	}

	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler whose attributes consist of
// both the receiver's attributes and the arguments.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new ContextHandler with the given group name
// applied to the wrapped handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
