package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}

	return out
}

func TestFromContext(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	fallback := slog.New(slog.NewJSONHandler(io.Discard, nil))

	tests := []struct {
		name string
		ctx  context.Context
		want *slog.Logger
	}{
		{"nil context", nil, fallback},
		{"no logger", context.Background(), fallback},
		{"stored logger", WithContext(context.Background(), custom), custom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, FromContextOr(tt.ctx, fallback))
		})
	}

	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestContextAttributes(t *testing.T) {
	tests := []struct {
		name  string
		apply func(context.Context) context.Context
		key   string
		want  string
	}{
		{"request id", func(ctx context.Context) context.Context { return WithRequestID(ctx, "req-123") }, KeyRequestID, "req-123"},
		{"correlation id", func(ctx context.Context) context.Context { return WithCorrelationID(ctx, "corr-789") }, KeyCorrelationID, "corr-789"},
		{"component", func(ctx context.Context) context.Context { return WithComponent(ctx, "refresher") }, KeyComponent, "refresher"},
		{"date key", func(ctx context.Context) context.Context { return WithDateKey(ctx, "2026-10-19") }, KeyDateKey, "2026-10-19"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			ctx := WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
			ctx = tt.apply(ctx)

			FromContext(ctx).InfoContext(ctx, "daily quote ready")

			entries := decodeLines(t, buf.Bytes())
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0][tt.key])
		})
	}
}

func TestWith_Stacks(t *testing.T) {
	var buf bytes.Buffer

	ctx := WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = WithComponent(ctx, "refresher")
	ctx = WithDateKey(ctx, "2026-10-19")

	assert.Equal(t, ctx, With(ctx), "no attrs keeps the context")

	FromContext(ctx).InfoContext(ctx, "reminder due")

	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, "refresher", entries[0][KeyComponent])
	assert.Equal(t, "2026-10-19", entries[0][KeyDateKey])
}

func TestNewWithWriter_Formats(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"json", func(t *testing.T, out string) {
			entries := decodeLines(t, []byte(out))
			require.Len(t, entries, 1)
			assert.Equal(t, "daily-quote", entries[0]["service_name"])
			assert.Equal(t, "1.2.3", entries[0]["service_version"])
			assert.Equal(t, "q001", entries[0]["quote_id"])
		}},
		{"text", func(t *testing.T, out string) {
			assert.Contains(t, out, "service_name=daily-quote")
			assert.Contains(t, out, "quote_id=q001")
		}},
		{"pretty", func(t *testing.T, out string) {
			assert.Contains(t, out, "quote served")
			assert.Contains(t, out, "q001")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer

			logger := NewWithWriter(&Config{Level: "info", Format: tt.format, Service: "daily-quote", Version: "1.2.3"}, &buf)
			logger.Info("quote served", slog.String("quote_id", "q001"))

			tt.check(t, buf.String())
		})
	}
}

func TestNewWithWriter_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantTrace bool
		wantDebug bool
		wantInfo  bool
	}{
		{"trace", true, true, true},
		{"debug", false, true, true},
		{"info", false, false, true},
		{"error", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewWithWriter(&Config{Level: tt.level, Format: "json"}, io.Discard)
			ctx := context.Background()

			assert.Equal(t, tt.wantTrace, logger.Enabled(ctx, LevelTrace))
			assert.Equal(t, tt.wantDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.wantInfo, logger.Enabled(ctx, slog.LevelInfo))
		})
	}
}

func TestNewWithWriter_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	var term bytes.Buffer

	logger := NewWithWriter(&Config{
		Level:  "info",
		Format: "text",
		File:   FileConfig{Enabled: true, Path: path, Level: "debug", MaxSizeMB: 1},
	}, &term)

	logger.Debug("cache miss", slog.String("key", "dailyQuote"))
	logger.Info("daily quote ready", slog.String("redis_url", "redis://:hunter2@localhost:6379/0"))

	assert.NotContains(t, term.String(), "cache miss", "terminal stays at info")
	assert.Contains(t, term.String(), "daily quote ready")
	assert.NotContains(t, term.String(), "hunter2")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	entries := decodeLines(t, data)
	require.Len(t, entries, 2, "file sink runs at its own level")
	assert.Equal(t, "cache miss", entries[0]["msg"])
	assert.NotContains(t, string(data), "hunter2")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSlogToCharmLevel(t *testing.T) {
	tests := []struct {
		input slog.Level
		want  log.Level
	}{
		{LevelTrace, log.DebugLevel},
		{slog.LevelDebug, log.DebugLevel},
		{slog.LevelInfo, log.InfoLevel},
		{slog.LevelWarn, log.WarnLevel},
		{slog.LevelError, log.ErrorLevel},
		{slog.Level(12), log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, slogToCharmLevel(tt.input))
		})
	}
}

func TestFanoutHandler(t *testing.T) {
	var verbose, quiet bytes.Buffer

	h := NewFanoutHandler(
		Sink{Handler: slog.NewJSONHandler(&verbose, &slog.HandlerOptions{Level: LevelTrace}), Level: slog.LevelDebug},
		Sink{Handler: slog.NewJSONHandler(&quiet, &slog.HandlerOptions{Level: LevelTrace}), Level: slog.LevelWarn},
	)

	ctx := context.Background()

	assert.False(t, h.Enabled(ctx, LevelTrace), "sink level caps a permissive handler")
	assert.True(t, h.Enabled(ctx, slog.LevelDebug))

	logger := slog.New(h).With(slog.String("component", "refresher")).WithGroup("streak")
	logger.Debug("activity recorded", slog.Int("current", 3))
	logger.Warn("grace period used", slog.Int("current", 4))

	v := decodeLines(t, verbose.Bytes())
	q := decodeLines(t, quiet.Bytes())

	require.Len(t, v, 2)
	require.Len(t, q, 1)
	assert.Equal(t, "grace period used", q[0]["msg"])
	assert.Equal(t, "refresher", q[0]["component"])
	assert.Equal(t, map[string]any{"current": float64(4)}, q[0]["streak"])
}

func TestFanoutHandler_NilLevelDefersToHandler(t *testing.T) {
	h := NewFanoutHandler(Sink{Handler: slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})})

	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestNewReplaceAttr(t *testing.T) {
	tests := []struct {
		name   string
		attr   slog.Attr
		redact bool
	}{
		{"redis url field", slog.String("redis_url", "redis://localhost:6379/0"), true},
		{"credential url value", slog.String("target", "redis://:pw@cache:6379/0"), true},
		{"api key", slog.String("api_key", "abc"), true},
		{"secret prefix", slog.String("secret_salt", "abc"), true},
		{"bearer value", slog.String("header", "Bearer abc.def"), true},
		{"jwt value", slog.String("value", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig"), true},
		{"quote text", slog.String("quote_text", "Stay hungry, stay foolish."), false},
		{"plain url", slog.String("base_url", "https://api.quotable.io"), false},
		{"date key", slog.String(KeyDateKey, "2026-10-19"), false},
	}

	replace := NewReplaceAttr()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := replace(nil, tt.attr)

			if tt.redact {
				assert.NotEqual(t, tt.attr.Value.String(), got.Value.String())
			} else {
				assert.Equal(t, tt.attr.Value.String(), got.Value.String())
			}
		})
	}
}

func TestPrettyFormat_Redacts(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&Config{Level: "debug", Format: "pretty"}, &buf)
	logger.With(slog.String("redis_url", "redis://:pw@cache:6379/0")).
		WithGroup("storage").
		Info("backend opened", slog.String("token", "t0k3n"))

	out := buf.String()
	assert.Contains(t, out, "backend opened")
	assert.NotContains(t, out, ":pw@")
	assert.NotContains(t, out, "t0k3n")
}
