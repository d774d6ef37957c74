// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	userIDKey     contextKey = "ctxutil.userID"
	chatIDKey     contextKey = "ctxutil.chatID"
	deliveryIDKey contextKey = "ctxutil.deliveryID"
)

// WithUserID adds a user ID to the context.
// User ID comes from the webhook event source and is used for
// per-user rate limiting and log correlation.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the user ID from the context.
// Returns the user ID if found, empty string otherwise.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithChatID adds a chat ID to the context.
// Chat ID identifies the conversation (user, group, or room).
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, chatIDKey, chatID)
}

// GetChatID retrieves the chat ID from the context.
// Returns the chat ID if found, empty string otherwise.
func GetChatID(ctx context.Context) string {
	if v, ok := ctx.Value(chatIDKey).(string); ok {
		return v
	}
	return ""
}

// WithDeliveryID adds a webhook delivery ID to the context for tracing.
// The delivery ID is generated once per webhook request so every event in
// the batch shares the same correlation ID in logs.
func WithDeliveryID(ctx context.Context, deliveryID string) context.Context {
	return context.WithValue(ctx, deliveryIDKey, deliveryID)
}

// GetDeliveryID retrieves the delivery ID from the context.
// Returns the delivery ID if found, empty string otherwise.
func GetDeliveryID(ctx context.Context) string {
	if v, ok := ctx.Value(deliveryIDKey).(string); ok {
		return v
	}
	return ""
}
