package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultLanguage is used for chats with no stored preference.
const DefaultLanguage = "en"

// ChatSettings holds per-chat preferences.
type ChatSettings struct {
	ChatID    string    `json:"chat_id"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetChatSettings returns the stored settings for a chat, or defaults
// when the chat has none yet.
func (d *DB) GetChatSettings(ctx context.Context, chatID string) (ChatSettings, error) {
	const query = `SELECT chat_id, language, updated_at FROM chat_settings WHERE chat_id = ?`

	var s ChatSettings
	err := d.conn.QueryRowContext(ctx, query, chatID).Scan(&s.ChatID, &s.Language, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatSettings{ChatID: chatID, Language: DefaultLanguage}, nil
	}
	if err != nil {
		return ChatSettings{}, fmt.Errorf("failed to query chat settings: %w", err)
	}
	return s, nil
}

// SetChatLanguage stores the language preference for a chat.
func (d *DB) SetChatLanguage(ctx context.Context, chatID, language string) error {
	const query = `
INSERT INTO chat_settings (chat_id, language, updated_at) VALUES (?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE SET language = excluded.language, updated_at = excluded.updated_at`

	if _, err := d.conn.ExecContext(ctx, query, chatID, language, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store chat language: %w", err)
	}
	return nil
}
