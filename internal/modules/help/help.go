// Package help implements the /help command: a list of registered
// commands with quick-reply shortcuts for each.
package help

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuchenlin/chatgate-go/internal/bot"
	"github.com/yuchenlin/chatgate-go/internal/event"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
)

// Handler lists every command the registry knows.
type Handler struct {
	registry *bot.Registry
}

// New creates the help handler.
func New(registry *bot.Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) Keyword() string     { return "help" }
func (h *Handler) Aliases() []string   { return []string{"h", "?"} }
func (h *Handler) Description() string { return "List available commands" }

// Handle builds the command list. Quick-reply chips let the user tap a
// command instead of typing it.
func (h *Handler) Handle(context.Context, *event.Event, string) ([]outbound.Message, error) {
	handlers := h.registry.Handlers()

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cmd := range handlers {
		fmt.Fprintf(&b, "/%s - %s\n", cmd.Keyword(), cmd.Description())
	}
	base := outbound.NewText(strings.TrimRight(b.String(), "\n"))

	var options []outbound.QuickReplyOption
	for _, cmd := range handlers {
		if len(options) == outbound.MaxQuickReplyOptions {
			break
		}
		options = append(options, outbound.QuickReplyOption{
			Action: outbound.MessageAction{
				Label: "/" + cmd.Keyword(),
				Text:  "/" + cmd.Keyword(),
			},
		})
	}

	if len(options) == 0 {
		return []outbound.Message{base}, nil
	}

	set, err := outbound.NewQuickReplySet(base, options)
	if err != nil {
		return nil, err
	}
	return []outbound.Message{set}, nil
}
