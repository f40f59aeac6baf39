package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// Recovery turns a handler panic into a 500 error envelope and logs the stack.
// It must be first in the chain. If the handler already started writing
// (an event stream, for instance) the request is only aborted.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()
			traceID := dto.GetTraceID(c)

			logging.FromContextOr(ctx, logger).ErrorContext(ctx, "panic recovered",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("trace_id", traceID),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			dto.AbortWithCode(c, dto.ErrorCodeInternal, "an internal error occurred")
		}()

		c.Next()
	}
}
