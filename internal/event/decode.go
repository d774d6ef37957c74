package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
)

// Batch is the result of decoding one webhook delivery. Events holds the
// successfully decoded events in provider array order; Errors holds one
// DecodeError per malformed element. A batch with errors still processes
// its valid events (partial-failure semantics).
type Batch struct {
	Destination string
	Events      []Event
	Errors      []*cgerrors.DecodeError
}

type wirePayload struct {
	Destination string            `json:"destination"`
	Events      []json.RawMessage `json:"events"`
}

type wireSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
	RoomID  string `json:"roomId"`
}

type wireMessage struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	MIME     string `json:"mime"`
	FileSize int64  `json:"fileSize"`
	Duration int64  `json:"duration"` // milliseconds
	FileName string `json:"fileName"`
}

type wireEvent struct {
	Type           string       `json:"type"`
	WebhookEventID string       `json:"webhookEventId"`
	Timestamp      int64        `json:"timestamp"` // milliseconds since epoch
	ReplyToken     string       `json:"replyToken"`
	Source         wireSource   `json:"source"`
	Message        *wireMessage `json:"message"`
	Postback       *Postback    `json:"postback"`
}

// Decode parses a raw webhook body into a Batch.
// A body that fails to parse as JSON at the top level returns a non-nil
// error (the HTTP layer maps it to 400). Malformed individual events are
// collected in Batch.Errors; the remaining events still decode.
func Decode(rawBody []byte) (*Batch, error) {
	var payload wirePayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook body: %w", err)
	}

	batch := &Batch{
		Destination: payload.Destination,
		Events:      make([]Event, 0, len(payload.Events)),
	}

	for i, raw := range payload.Events {
		ev, err := decodeOne(raw)
		if err != nil {
			batch.Errors = append(batch.Errors, cgerrors.NewDecodeError(i, err))
			continue
		}
		batch.Events = append(batch.Events, ev)
	}

	return batch, nil
}

func decodeOne(raw json.RawMessage) (Event, error) {
	var we wireEvent
	if err := json.Unmarshal(raw, &we); err != nil {
		return Event{}, err
	}
	if we.Type == "" {
		return Event{}, errors.New("missing event type")
	}

	ev := Event{
		ID:         we.WebhookEventID,
		ReplyToken: we.ReplyToken,
		Timestamp:  time.UnixMilli(we.Timestamp),
		Source: Source{
			Type:    we.Source.Type,
			UserID:  we.Source.UserID,
			GroupID: we.Source.GroupID,
			RoomID:  we.Source.RoomID,
		},
	}

	switch Type(we.Type) {
	case TypeMessage:
		if we.Message == nil {
			return Event{}, errors.New("message event without message payload")
		}
		content, err := decodeContent(we.Message)
		if err != nil {
			return Event{}, err
		}
		ev.Type = TypeMessage
		ev.Message = content
	case TypePostback:
		if we.Postback == nil {
			return Event{}, errors.New("postback event without postback payload")
		}
		ev.Type = TypePostback
		ev.Postback = we.Postback
	case TypeFollow, TypeUnfollow, TypeJoin, TypeLeave:
		ev.Type = Type(we.Type)
	default:
		// Provider added a type we do not know yet. Tolerate it.
		ev.Type = TypeUnknown
	}

	return ev, nil
}

func decodeContent(wm *wireMessage) (*MessageContent, error) {
	content := &MessageContent{
		ID:       wm.ID,
		Text:     wm.Text,
		URL:      wm.URL,
		MIME:     wm.MIME,
		Size:     wm.FileSize,
		Duration: time.Duration(wm.Duration) * time.Millisecond,
		FileName: wm.FileName,
	}

	switch ContentType(wm.Type) {
	case ContentText, ContentImage, ContentVideo, ContentAudio, ContentFile:
		content.Type = ContentType(wm.Type)
	case "":
		return nil, errors.New("missing message content type")
	default:
		content.Type = ContentUnknown
	}

	if err := content.checkBounds(); err != nil {
		return nil, err
	}

	return content, nil
}
