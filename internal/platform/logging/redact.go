package logging

import (
	"context"
	"log/slog"
	"regexp"
	"slices"

	"github.com/m-mizutani/masq"
)

var (
	jwtPattern    = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	bearerPattern = regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`)

	// Connection URLs carrying a password, e.g. redis://:pw@host:6379/0
	credentialURLPattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://[^/@\s]*:[^/@\s]+@`)
)

// sensitiveFields are attribute and struct field names whose values never reach a log sink.
var sensitiveFields = []string{
	"password",
	"token",
	"api_key",
	"apiKey",
	"authorization",
	"credentials",
	"redis_url",
	"RedisURL",
	"dsn",
	"DSN",
}

// DefaultRedactOptions returns the masq options applied to every handler built by New.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveFields)+4)
	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
		masq.WithRegex(credentialURLPattern),
	)
}

// NewReplaceAttr builds a slog ReplaceAttr that redacts DefaultRedactOptions plus opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}

// redactingHandler applies a ReplaceAttr function in front of handlers that do not
// support one, such as the charm pretty printer.
type redactingHandler struct {
	next    slog.Handler
	replace func(groups []string, a slog.Attr) slog.Attr
	groups  []string
}

func newRedactingHandler(next slog.Handler, replace func([]string, slog.Attr) slog.Attr) slog.Handler {
	if replace == nil {
		return next
	}

	return &redactingHandler{next: next, replace: replace}
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.replace(h.groups, a))
		return true
	})

	return h.next.Handle(ctx, out)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	replaced := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		replaced[i] = h.replace(h.groups, a)
	}

	return &redactingHandler{next: h.next.WithAttrs(replaced), replace: h.replace, groups: h.groups}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	groups := append(slices.Clone(h.groups), name)

	return &redactingHandler{next: h.next.WithGroup(name), replace: h.replace, groups: groups}
}
