package logging

import (
	"context"
	"log/slog"
)

// Attribute keys shared by the HTTP middleware, the app services and the refresher.
const (
	KeyRequestID     = "request_id"
	KeyCorrelationID = "correlation_id"
	KeyComponent     = "component"
	KeyDateKey       = "date_key"
)

type ctxKey struct{}

// FromContext returns the logger stored in ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, slog.Default())
}

// FromContextOr returns the logger stored in ctx, or fallback when none is set.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx == nil {
		return fallback
	}

	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}

	return fallback
}

// WithContext stores a logger in the context.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// With returns a context whose logger carries attrs on every record.
func With(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}

	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}

	return WithContext(ctx, FromContext(ctx).With(args...))
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return With(ctx, slog.String(KeyRequestID, id))
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return With(ctx, slog.String(KeyCorrelationID, id))
}

// WithComponent tags records with the background component that wrote them.
func WithComponent(ctx context.Context, component string) context.Context {
	return With(ctx, slog.String(KeyComponent, component))
}

// WithDateKey tags records with the profile day being worked on.
func WithDateKey(ctx context.Context, day string) context.Context {
	return With(ctx, slog.String(KeyDateKey, day))
}

// Trace logs at LevelTrace.
func Trace(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	logger.LogAttrs(ctx, LevelTrace, msg, attrs...)
}
