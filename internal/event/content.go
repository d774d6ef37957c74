package event

import (
	"fmt"
	"time"
	"unicode/utf8"

	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
)

// ContentType is the message content variant tag.
type ContentType string

// Message content variants. UnknownContent tolerates provider additions.
const (
	ContentText    ContentType = "text"
	ContentImage   ContentType = "image"
	ContentVideo   ContentType = "video"
	ContentAudio   ContentType = "audio"
	ContentFile    ContentType = "file"
	ContentUnknown ContentType = "unknown"
)

// Provider content bounds, enforced at decode time.
const (
	MaxTextRunes    = 5000
	MaxImageBytes   = 10 << 20  // 10MB
	MaxVideoBytes   = 200 << 20 // 200MB
	MaxVideoSeconds = 60
	MaxAudioBytes   = 10 << 20 // 10MB
	MaxAudioSeconds = 300
	MaxFileBytes    = 300 << 20 // 300MB
)

// MessageContent is the payload of a message event.
// Text is set for ContentText; URL/MIME/Size/Duration describe media
// variants; FileName is set for ContentFile.
type MessageContent struct {
	Type     ContentType
	ID       string
	Text     string
	URL      string
	MIME     string
	Size     int64         // bytes, media variants only
	Duration time.Duration // video and audio only
	FileName string
}

// checkBounds enforces the per-variant size and duration limits.
// Violations are reported as ErrContentTooLarge, never a panic.
func (c *MessageContent) checkBounds() error {
	switch c.Type {
	case ContentText:
		if n := utf8.RuneCountInString(c.Text); n > MaxTextRunes {
			return fmt.Errorf("%w: text has %d chars, max %d", cgerrors.ErrContentTooLarge, n, MaxTextRunes)
		}
	case ContentImage:
		if c.Size > MaxImageBytes {
			return fmt.Errorf("%w: image is %d bytes, max %d", cgerrors.ErrContentTooLarge, c.Size, MaxImageBytes)
		}
	case ContentVideo:
		if c.Size > MaxVideoBytes {
			return fmt.Errorf("%w: video is %d bytes, max %d", cgerrors.ErrContentTooLarge, c.Size, MaxVideoBytes)
		}
		if c.Duration > MaxVideoSeconds*time.Second {
			return fmt.Errorf("%w: video is %v long, max %ds", cgerrors.ErrContentTooLarge, c.Duration, MaxVideoSeconds)
		}
	case ContentAudio:
		if c.Size > MaxAudioBytes {
			return fmt.Errorf("%w: audio is %d bytes, max %d", cgerrors.ErrContentTooLarge, c.Size, MaxAudioBytes)
		}
		if c.Duration > MaxAudioSeconds*time.Second {
			return fmt.Errorf("%w: audio is %v long, max %ds", cgerrors.ErrContentTooLarge, c.Duration, MaxAudioSeconds)
		}
	case ContentFile:
		if c.Size > MaxFileBytes {
			return fmt.Errorf("%w: file is %d bytes, max %d", cgerrors.ErrContentTooLarge, c.Size, MaxFileBytes)
		}
	}
	return nil
}
