package outbound

// Provider API limits for outbound messages (rune counts unless noted).
// Violations are construction/validation-time errors, never silent
// truncation.
const (
	MaxTextLength     = 5000 // text message content
	MaxAltTextLength  = 400  // template alt text
	MaxPostbackData   = 300  // postback action data (bytes)
	MaxTitleLength    = 40   // card title
	MaxSubtitleLength = 160  // card subtitle/body text
	MaxLabelLength    = 20   // action and quick-reply labels

	MaxCardActions       = 4  // actions per card
	MaxCarouselColumns   = 10 // columns in a carousel
	MaxQuickReplyOptions = 13 // options in a quick-reply set
)
