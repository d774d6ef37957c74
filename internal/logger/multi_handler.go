package logger

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler duplicates each record to every registered handler, so
// local stdout and remote shipping can share one slog front end.
// Records are cloned per handler to preserve slog.Handler semantics.
type MultiHandler struct {
	targets []slog.Handler
}

// NewMultiHandler creates a MultiHandler from the given handlers,
// skipping nil ones.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	targets := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			targets = append(targets, h)
		}
	}
	return &MultiHandler{targets: targets}
}

// Enabled reports whether any underlying handler is enabled for the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range m.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle dispatches the record to every enabled handler, joining any
// handler errors.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, t := range m.targets {
		if !t.Enabled(ctx, r.Level) {
			continue
		}
		err = errors.Join(err, t.Handle(ctx, r.Clone()))
	}
	return err
}

// WithAttrs returns a new MultiHandler with the attributes applied to
// every handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	targets := make([]slog.Handler, len(m.targets))
	for i, t := range m.targets {
		targets[i] = t.WithAttrs(attrs)
	}
	return &MultiHandler{targets: targets}
}

// WithGroup returns a new MultiHandler with the group applied to every
// handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	targets := make([]slog.Handler, len(m.targets))
	for i, t := range m.targets {
		targets[i] = t.WithGroup(name)
	}
	return &MultiHandler{targets: targets}
}
