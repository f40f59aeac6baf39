// Package logging provides structured logging using Go's slog package.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelTrace is below debug; adapters use it for per-key storage traffic.
const LevelTrace = slog.Level(-8)

// Config holds logging configuration.
type Config struct {
	Level   string // trace, debug, info, warn, error
	Format  string // json, text, pretty
	Service string // service name for default attrs
	Version string // service version for default attrs
	File    FileConfig
}

// FileConfig enables a rolling JSON log file next to the terminal output.
type FileConfig struct {
	Enabled bool
	Path    string
	// Level overrides Config.Level for the file; empty keeps it.
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New creates a logger writing to stdout.
func New(cfg *Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger writing to w, plus the rolling file when enabled.
// Secret redaction is applied to every output.
func NewWithWriter(cfg *Config, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)
	replace := NewReplaceAttr()

	var handler slog.Handler = terminalHandler(cfg.Format, w, level, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replace,
	})

	if cfg.File.Enabled && cfg.File.Path != "" {
		fileLevel := level
		if cfg.File.Level != "" {
			fileLevel = parseLevel(cfg.File.Level)
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}

		handler = NewFanoutHandler(
			Sink{Handler: handler, Level: level},
			Sink{
				Handler: slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{Level: fileLevel, ReplaceAttr: replace}),
				Level:   fileLevel,
			},
		)
	}

	return slog.New(handler).With(
		slog.String("service_name", cfg.Service),
		slog.String("service_version", cfg.Version),
	)
}

func terminalHandler(format string, w io.Writer, level slog.Level, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	case "pretty":
		charm := log.NewWithOptions(w, log.Options{
			Level:           slogToCharmLevel(level),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		})

		return newRedactingHandler(charm, opts.ReplaceAttr)
	default:
		return slog.NewJSONHandler(w, opts)
	}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// slogToCharmLevel maps slog levels onto the four charm levels.
func slogToCharmLevel(level slog.Level) log.Level {
	switch {
	case level < slog.LevelInfo:
		return log.DebugLevel
	case level < slog.LevelWarn:
		return log.InfoLevel
	case level < slog.LevelError:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}
