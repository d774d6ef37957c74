package settings

import (
	"context"
	"strings"
	"testing"

	"github.com/yuchenlin/chatgate-go/internal/event"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
	"github.com/yuchenlin/chatgate-go/internal/storage"
)

type memStore struct {
	languages map[string]string
}

func newMemStore() *memStore {
	return &memStore{languages: make(map[string]string)}
}

func (m *memStore) GetChatSettings(_ context.Context, chatID string) (storage.ChatSettings, error) {
	lang, ok := m.languages[chatID]
	if !ok {
		lang = storage.DefaultLanguage
	}
	return storage.ChatSettings{ChatID: chatID, Language: lang}, nil
}

func (m *memStore) SetChatLanguage(_ context.Context, chatID, language string) error {
	m.languages[chatID] = language
	return nil
}

func groupEvent() *event.Event {
	return &event.Event{
		Type:       event.TypeMessage,
		ReplyToken: "reply-token-abc123",
		Source:     event.Source{Type: "group", UserID: "user-1", GroupID: "group-9"},
	}
}

func TestSettingsShowsCard(t *testing.T) {
	t.Parallel()

	h := New(newMemStore())

	msgs, err := h.Handle(context.Background(), groupEvent(), "")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	card, ok := msgs[0].(outbound.Card)
	if !ok {
		t.Fatalf("message type = %T, want Card", msgs[0])
	}
	if !strings.Contains(card.Subtitle, "English") {
		t.Errorf("subtitle = %q, want default language", card.Subtitle)
	}
	if err := card.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSettingsSetLanguage(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	h := New(store)

	msgs, err := h.Handle(context.Background(), groupEvent(), "lang ja")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if store.languages["group-9"] != "ja" {
		t.Errorf("stored language = %q, want ja (keyed by chat, not user)", store.languages["group-9"])
	}
}

func TestSettingsRejectsUnknownLanguage(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	h := New(store)

	msgs, err := h.Handle(context.Background(), groupEvent(), "lang xx")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	text, ok := msgs[0].(outbound.Text)
	if !ok {
		t.Fatalf("message type = %T, want Text", msgs[0])
	}
	if !strings.Contains(text.Body, "Unsupported") {
		t.Errorf("body = %q", text.Body)
	}
	if len(store.languages) != 0 {
		t.Errorf("store = %v, want unchanged", store.languages)
	}
}

func TestSettingsUsageOnUnknownSubcommand(t *testing.T) {
	t.Parallel()

	h := New(newMemStore())

	msgs, err := h.Handle(context.Background(), groupEvent(), "volume 11")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	text, ok := msgs[0].(outbound.Text)
	if !ok {
		t.Fatalf("message type = %T, want Text", msgs[0])
	}
	if !strings.Contains(text.Body, "Usage") {
		t.Errorf("body = %q", text.Body)
	}
}
