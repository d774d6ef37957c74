// Package event defines the typed inbound event model and its decoder.
// Raw webhook payloads are decoded into closed variant sets at the
// boundary so downstream code never touches untyped JSON.
package event

import (
	"time"
)

// Type is the event variant tag.
type Type string

// Event variants delivered by the provider. Unknown covers types added by
// the provider after this code shipped; they route to a no-op handler.
const (
	TypeMessage  Type = "message"
	TypeFollow   Type = "follow"
	TypeUnfollow Type = "unfollow"
	TypeJoin     Type = "join"
	TypeLeave    Type = "leave"
	TypePostback Type = "postback"
	TypeUnknown  Type = "unknown"
)

// Source identifies where an event came from: a user chat, group, or room.
type Source struct {
	Type    string // "user", "group", "room"
	UserID  string
	GroupID string
	RoomID  string
}

// ChatID returns the conversation identifier: group or room ID when
// present, the user ID otherwise.
func (s Source) ChatID() string {
	switch {
	case s.GroupID != "":
		return s.GroupID
	case s.RoomID != "":
		return s.RoomID
	default:
		return s.UserID
	}
}

// Postback carries the opaque data string from a postback action.
type Postback struct {
	Data string
}

// Event is one decoded webhook event. Variant-specific payloads are nil
// for other variants: Message is set only for TypeMessage, Postback only
// for TypePostback.
type Event struct {
	Type       Type
	ID         string // provider-assigned webhook event ID
	ReplyToken string // single-use, time-bounded reply handle; empty for unfollow/leave
	Timestamp  time.Time
	Source     Source

	Message  *MessageContent
	Postback *Postback
}
