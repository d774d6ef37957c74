// Package status implements the /status command: build info, uptime,
// remaining outbound capacity, and delivery outcome counts.
package status

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuchenlin/chatgate-go/internal/buildinfo"
	"github.com/yuchenlin/chatgate-go/internal/event"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
	"github.com/yuchenlin/chatgate-go/internal/ratelimit"
)

// DeliveryStats provides delivery outcome counts. *storage.DB implements
// it.
type DeliveryStats interface {
	CountByResult(ctx context.Context) (map[string]int64, error)
}

// Handler reports gateway health to the chat.
type Handler struct {
	stats   DeliveryStats
	limiter *ratelimit.ChannelLimiter
	started time.Time
}

// New creates the status handler. stats may be nil when the delivery log
// is disabled.
func New(stats DeliveryStats, limiter *ratelimit.ChannelLimiter) *Handler {
	return &Handler{
		stats:   stats,
		limiter: limiter,
		started: time.Now(),
	}
}

func (h *Handler) Keyword() string     { return "status" }
func (h *Handler) Aliases() []string   { return nil }
func (h *Handler) Description() string { return "Show gateway health" }

func (h *Handler) Handle(ctx context.Context, _ *event.Event, _ string) ([]outbound.Message, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "chatgate %s\n", buildinfo.Short())
	fmt.Fprintf(&b, "Uptime: %s\n", time.Since(h.started).Round(time.Second))
	if h.limiter != nil {
		fmt.Fprintf(&b, "Outbound permits left this window: %d\n", h.limiter.Remaining())
	}

	if h.stats != nil {
		counts, err := h.stats.CountByResult(ctx)
		if err != nil {
			b.WriteString("Delivery stats: unavailable\n")
		} else if len(counts) > 0 {
			b.WriteString("Deliveries:\n")
			results := make([]string, 0, len(counts))
			for result := range counts {
				results = append(results, result)
			}
			sort.Strings(results)
			for _, result := range results {
				fmt.Fprintf(&b, "  %s: %d\n", result, counts[result])
			}
		}
	}

	return []outbound.Message{outbound.NewText(strings.TrimRight(b.String(), "\n"))}, nil
}
