package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// Logger seeds the request context with logger so RequestID and CorrelationID enrich it.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}
}

// Logging logs one line per completed request at a level chosen by status:
// 5xx at ERROR, 4xx at WARN and the rest at INFO.
// Paths under any of skipPrefixes (health probes, the event stream) are not logged.
func Logging(logger *slog.Logger, skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range skipPrefixes {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()
		ctx := c.Request.Context()
		log := logging.FromContextOr(ctx, logger)

		logging.Trace(ctx, log, "request started",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("client_ip", c.ClientIP()),
		)

		c.Next()

		status := c.Writer.Status()

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
		}
		if c.Request.URL.RawQuery != "" {
			attrs = append(attrs, slog.String("query", c.Request.URL.RawQuery))
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		log.LogAttrs(ctx, level, "request completed", attrs...)
	}
}
