// Package bot routes decoded inbound events to handlers and assembles
// their replies. Commands (text starting with "/") dispatch through a
// keyword registry; other text goes to an optional conversational
// fallback.
package bot

import (
	"context"

	"github.com/yuchenlin/chatgate-go/internal/event"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
)

// Handler responds to one command keyword. Implementations live in
// internal/modules and are registered at startup.
type Handler interface {
	// Keyword is the primary command keyword, lowercase, without the
	// leading slash.
	Keyword() string

	// Aliases are alternative keywords resolving to the same handler.
	Aliases() []string

	// Description is a one-line summary shown by the help command.
	Description() string

	// Handle produces the reply messages for the command. args is the
	// text after the keyword, trimmed; empty when the command was sent
	// bare.
	Handle(ctx context.Context, ev *event.Event, args string) ([]outbound.Message, error)
}

// ConversationalHandler responds to plain (non-command) text messages.
type ConversationalHandler interface {
	HandleText(ctx context.Context, ev *event.Event, text string) ([]outbound.Message, error)
}
