package bot

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/width"
)

// Registry maps command keywords to handlers. Registration happens at
// startup; lookups are concurrent-safe afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []Handler
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under its keyword and aliases.
// A duplicate keyword is a startup programming error.
func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keywords := append([]string{h.Keyword()}, h.Aliases()...)
	for _, kw := range keywords {
		normalized := NormalizeKeyword(kw)
		if normalized == "" {
			return fmt.Errorf("register %q: empty keyword", h.Keyword())
		}
		if _, exists := r.handlers[normalized]; exists {
			return fmt.Errorf("register %q: keyword %q already registered", h.Keyword(), normalized)
		}
		r.handlers[normalized] = h
	}
	r.order = append(r.order, h)
	return nil
}

// Resolve finds the handler for a keyword. The keyword may carry a
// leading slash, fullwidth characters, or uppercase; all are normalized.
func (r *Registry) Resolve(keyword string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[NormalizeKeyword(keyword)]
	return h, ok
}

// Handlers returns registered handlers in registration order, for help
// output.
func (r *Registry) Handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handler, len(r.order))
	copy(out, r.order)
	return out
}

// NormalizeKeyword folds a command keyword into canonical form: fullwidth
// characters narrowed (mobile keyboards produce "／ｈｅｌｐ"), leading
// slash stripped, lowercased.
func NormalizeKeyword(s string) string {
	s = width.Narrow.String(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "/")
	return strings.ToLower(s)
}

// IsCommand reports whether trimmed message text addresses the command
// registry. The slash may be fullwidth.
func IsCommand(text string) bool {
	narrowed := width.Narrow.String(text)
	return strings.HasPrefix(narrowed, "/")
}
