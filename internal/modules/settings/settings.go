// Package settings implements the /settings command: per-chat
// preferences backed by the settings store.
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuchenlin/chatgate-go/internal/event"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
	"github.com/yuchenlin/chatgate-go/internal/storage"
)

// Store persists per-chat preferences. *storage.DB implements it.
type Store interface {
	GetChatSettings(ctx context.Context, chatID string) (storage.ChatSettings, error)
	SetChatLanguage(ctx context.Context, chatID, language string) error
}

var supportedLanguages = map[string]string{
	"en": "English",
	"ja": "日本語",
	"zh": "中文",
	"de": "Deutsch",
}

var languageOrder = []string{"en", "ja", "zh", "de"}

// Handler shows and updates chat preferences.
type Handler struct {
	store Store
}

// New creates the settings handler.
func New(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Keyword() string     { return "settings" }
func (h *Handler) Aliases() []string   { return []string{"config"} }
func (h *Handler) Description() string { return "Show or change chat settings" }

// Handle without arguments shows current settings with a language
// picker; "lang <code>" updates the language.
func (h *Handler) Handle(ctx context.Context, ev *event.Event, args string) ([]outbound.Message, error) {
	chatID := ev.Source.ChatID()

	if args == "" {
		return h.show(ctx, chatID)
	}

	sub, rest, _ := strings.Cut(args, " ")
	switch strings.ToLower(sub) {
	case "lang", "language":
		return h.setLanguage(ctx, chatID, strings.TrimSpace(rest))
	default:
		return []outbound.Message{
			outbound.NewText("Usage: /settings, or /settings lang <code>"),
		}, nil
	}
}

func (h *Handler) show(ctx context.Context, chatID string) ([]outbound.Message, error) {
	current, err := h.store.GetChatSettings(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	name := supportedLanguages[current.Language]
	if name == "" {
		name = current.Language
	}

	actions := make([]outbound.Action, 0, len(languageOrder))
	for _, code := range languageOrder {
		actions = append(actions, outbound.PostbackAction{
			Label: supportedLanguages[code],
			Data:  "/settings lang " + code,
		})
	}

	card := outbound.Card{
		Title:    "Chat settings",
		Subtitle: "Language: " + name,
		Actions:  actions,
	}
	return []outbound.Message{card}, nil
}

func (h *Handler) setLanguage(ctx context.Context, chatID, code string) ([]outbound.Message, error) {
	code = strings.ToLower(code)
	name, ok := supportedLanguages[code]
	if !ok {
		return []outbound.Message{
			outbound.NewText("Unsupported language. Available: " + strings.Join(languageOrder, ", ")),
		}, nil
	}

	if err := h.store.SetChatLanguage(ctx, chatID, code); err != nil {
		return nil, fmt.Errorf("store language: %w", err)
	}
	return []outbound.Message{
		outbound.NewText("Language set to " + name + "."),
	}, nil
}
