// Package outbound implements the reply side of the gateway: the typed
// outbound message model, its wire encoding, and the dispatcher that
// delivers replies through the rate-limited, retrying provider client.
package outbound

import (
	"fmt"
	"unicode/utf8"

	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
)

// Message is an outbound message variant: Text, Card, Carousel, or
// QuickReplySet. Validate reports structural violations; the dispatcher
// validates every message before any network call.
type Message interface {
	Validate() error
	wire() map[string]any
}

// Action is a tapable element on a card or quick-reply option.
type Action interface {
	validate(field string) error
	wireAction() map[string]any
}

// URIAction opens a link.
type URIAction struct {
	Label string
	URI   string
}

func (a URIAction) validate(field string) error {
	if err := checkLabel(field, a.Label); err != nil {
		return err
	}
	if a.URI == "" {
		return cgerrors.NewValidationError(field+".uri", "must not be empty")
	}
	return nil
}

func (a URIAction) wireAction() map[string]any {
	return map[string]any{"type": "uri", "label": a.Label, "uri": a.URI}
}

// PostbackAction sends an opaque data string back to the gateway.
type PostbackAction struct {
	Label string
	Data  string
}

func (a PostbackAction) validate(field string) error {
	if err := checkLabel(field, a.Label); err != nil {
		return err
	}
	if a.Data == "" {
		return cgerrors.NewValidationError(field+".data", "must not be empty")
	}
	if len(a.Data) > MaxPostbackData {
		return cgerrors.NewValidationError(field+".data",
			fmt.Sprintf("is %d bytes, max %d", len(a.Data), MaxPostbackData))
	}
	return nil
}

func (a PostbackAction) wireAction() map[string]any {
	return map[string]any{"type": "postback", "label": a.Label, "data": a.Data}
}

// MessageAction sends a text message on the user's behalf.
type MessageAction struct {
	Label string
	Text  string
}

func (a MessageAction) validate(field string) error {
	if err := checkLabel(field, a.Label); err != nil {
		return err
	}
	if a.Text == "" {
		return cgerrors.NewValidationError(field+".text", "must not be empty")
	}
	return nil
}

func (a MessageAction) wireAction() map[string]any {
	return map[string]any{"type": "message", "label": a.Label, "text": a.Text}
}

func checkLabel(field, label string) error {
	if label == "" {
		return cgerrors.NewValidationError(field+".label", "must not be empty")
	}
	if n := utf8.RuneCountInString(label); n > MaxLabelLength {
		return cgerrors.NewValidationError(field+".label",
			fmt.Sprintf("has %d chars, max %d", n, MaxLabelLength))
	}
	return nil
}

// Text is a plain text message.
type Text struct {
	Body string
}

// NewText creates a text message.
func NewText(body string) Text {
	return Text{Body: body}
}

// Validate checks the text length bound.
func (t Text) Validate() error {
	if t.Body == "" {
		return cgerrors.NewValidationError("text.body", "must not be empty")
	}
	if n := utf8.RuneCountInString(t.Body); n > MaxTextLength {
		return cgerrors.NewValidationError("text.body",
			fmt.Sprintf("has %d chars, max %d", n, MaxTextLength))
	}
	return nil
}

func (t Text) wire() map[string]any {
	return map[string]any{"type": "text", "text": t.Body}
}

// Card is a rich template with a title, body, optional image, and up to
// MaxCardActions actions. On the wire it is a buttons template.
type Card struct {
	Title    string
	Subtitle string
	ImageURL string
	Actions  []Action
}

// Validate checks the card's structural bounds.
func (c Card) Validate() error {
	return c.validateAs("card")
}

func (c Card) validateAs(field string) error {
	if c.Title == "" {
		return cgerrors.NewValidationError(field+".title", "must not be empty")
	}
	if n := utf8.RuneCountInString(c.Title); n > MaxTitleLength {
		return cgerrors.NewValidationError(field+".title",
			fmt.Sprintf("has %d chars, max %d", n, MaxTitleLength))
	}
	if n := utf8.RuneCountInString(c.Subtitle); n > MaxSubtitleLength {
		return cgerrors.NewValidationError(field+".subtitle",
			fmt.Sprintf("has %d chars, max %d", n, MaxSubtitleLength))
	}
	if len(c.Actions) == 0 {
		return cgerrors.NewValidationError(field+".actions", "must have at least one action")
	}
	if len(c.Actions) > MaxCardActions {
		return cgerrors.NewValidationError(field+".actions",
			fmt.Sprintf("has %d actions, max %d", len(c.Actions), MaxCardActions))
	}
	for i, a := range c.Actions {
		if err := a.validate(fmt.Sprintf("%s.actions[%d]", field, i)); err != nil {
			return err
		}
	}
	return nil
}

func (c Card) wire() map[string]any {
	actions := make([]map[string]any, len(c.Actions))
	for i, a := range c.Actions {
		actions[i] = a.wireAction()
	}

	template := map[string]any{
		"type":    "buttons",
		"title":   c.Title,
		"text":    c.Subtitle,
		"actions": actions,
	}
	if c.ImageURL != "" {
		template["thumbnailImageUrl"] = c.ImageURL
	}

	return map[string]any{
		"type":     "template",
		"altText":  c.Title,
		"template": template,
	}
}

// Carousel is a horizontally scrollable sequence of cards.
type Carousel struct {
	AltText string
	Columns []Card
}

// NewCarousel creates a carousel. Exceeding MaxCarouselColumns is a
// construction-time error.
func NewCarousel(altText string, columns []Card) (Carousel, error) {
	c := Carousel{AltText: altText, Columns: columns}
	if err := c.Validate(); err != nil {
		return Carousel{}, err
	}
	return c, nil
}

// Validate checks the column cardinality and every column.
func (c Carousel) Validate() error {
	if n := utf8.RuneCountInString(c.AltText); n == 0 || n > MaxAltTextLength {
		return cgerrors.NewValidationError("carousel.altText",
			fmt.Sprintf("has %d chars, must be 1-%d", n, MaxAltTextLength))
	}
	if len(c.Columns) == 0 {
		return cgerrors.NewValidationError("carousel.columns", "must have at least one column")
	}
	if len(c.Columns) > MaxCarouselColumns {
		return cgerrors.NewValidationError("carousel.columns",
			fmt.Sprintf("has %d columns, max %d", len(c.Columns), MaxCarouselColumns))
	}
	for i, col := range c.Columns {
		if err := col.validateAs(fmt.Sprintf("carousel.columns[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (c Carousel) wire() map[string]any {
	columns := make([]map[string]any, len(c.Columns))
	for i, col := range c.Columns {
		actions := make([]map[string]any, len(col.Actions))
		for j, a := range col.Actions {
			actions[j] = a.wireAction()
		}
		column := map[string]any{
			"title":   col.Title,
			"text":    col.Subtitle,
			"actions": actions,
		}
		if col.ImageURL != "" {
			column["thumbnailImageUrl"] = col.ImageURL
		}
		columns[i] = column
	}

	return map[string]any{
		"type":    "template",
		"altText": c.AltText,
		"template": map[string]any{
			"type":    "carousel",
			"columns": columns,
		},
	}
}

// QuickReplyOption is one suggestion chip attached to a message.
type QuickReplyOption struct {
	Action   Action
	ImageURL string
}

// QuickReplySet attaches up to MaxQuickReplyOptions options to a base
// message.
type QuickReplySet struct {
	Base    Message
	Options []QuickReplyOption
}

// NewQuickReplySet creates a quick-reply set. Exceeding
// MaxQuickReplyOptions is a construction-time error.
func NewQuickReplySet(base Message, options []QuickReplyOption) (QuickReplySet, error) {
	q := QuickReplySet{Base: base, Options: options}
	if err := q.Validate(); err != nil {
		return QuickReplySet{}, err
	}
	return q, nil
}

// Validate checks the option cardinality, each option, and the base.
func (q QuickReplySet) Validate() error {
	if q.Base == nil {
		return cgerrors.NewValidationError("quickReply.base", "must not be nil")
	}
	if _, nested := q.Base.(QuickReplySet); nested {
		return cgerrors.NewValidationError("quickReply.base", "must not be another quick-reply set")
	}
	if len(q.Options) == 0 {
		return cgerrors.NewValidationError("quickReply.options", "must have at least one option")
	}
	if len(q.Options) > MaxQuickReplyOptions {
		return cgerrors.NewValidationError("quickReply.options",
			fmt.Sprintf("has %d options, max %d", len(q.Options), MaxQuickReplyOptions))
	}
	for i, opt := range q.Options {
		field := fmt.Sprintf("quickReply.options[%d]", i)
		if opt.Action == nil {
			return cgerrors.NewValidationError(field+".action", "must not be nil")
		}
		if err := opt.Action.validate(field + ".action"); err != nil {
			return err
		}
	}
	return q.Base.Validate()
}

func (q QuickReplySet) wire() map[string]any {
	items := make([]map[string]any, len(q.Options))
	for i, opt := range q.Options {
		item := map[string]any{"type": "action", "action": opt.Action.wireAction()}
		if opt.ImageURL != "" {
			item["imageUrl"] = opt.ImageURL
		}
		items[i] = item
	}

	payload := q.Base.wire()
	payload["quickReply"] = map[string]any{"items": items}
	return payload
}

// BuildPayloads validates each message and converts the batch to wire
// payloads. The first invalid message fails the whole batch; callers get
// either every payload or none.
func BuildPayloads(messages []Message) ([]map[string]any, error) {
	payloads := make([]map[string]any, 0, len(messages))
	for i, msg := range messages {
		if msg == nil {
			return nil, cgerrors.NewValidationError(fmt.Sprintf("messages[%d]", i), "must not be nil")
		}
		if err := msg.Validate(); err != nil {
			return nil, err
		}
		payloads = append(payloads, msg.wire())
	}
	return payloads, nil
}
