package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Sink is one output of a FanoutHandler with its own minimum level.
type Sink struct {
	Handler slog.Handler
	Level   slog.Leveler
}

// FanoutHandler writes each record to every sink whose level admits it.
// The service uses it to send the terminal stream and the rolling file
// to different levels.
type FanoutHandler struct {
	sinks []Sink
}

// NewFanoutHandler creates a handler over sinks. A sink with a nil Level
// defers to its handler's own Enabled.
func NewFanoutHandler(sinks ...Sink) *FanoutHandler {
	return &FanoutHandler{sinks: sinks}
}

func (s Sink) enabled(ctx context.Context, level slog.Level) bool {
	if s.Level != nil && level < s.Level.Level() {
		return false
	}

	return s.Handler.Enabled(ctx, level)
}

func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle passes a clone of r to each admitting sink and joins their errors.
func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	var errs []error

	for _, s := range h.sinks {
		if !s.enabled(ctx, r.Level) {
			continue
		}

		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

func (h *FanoutHandler) derive(fn func(slog.Handler) slog.Handler) *FanoutHandler {
	sinks := make([]Sink, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = Sink{Handler: fn(s.Handler), Level: s.Level}
	}

	return &FanoutHandler{sinks: sinks}
}
