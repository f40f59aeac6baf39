package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
)

// Deadline bounds every request's context by timeout. Handlers observe the
// deadline through ctx; storage and corpus calls made with it are cancelled.
// A handler that gave up on the deadline without writing gets a TIMEOUT
// envelope. Requests under any of skipPrefixes, such as the long-lived
// event stream, get no deadline.
func Deadline(timeout time.Duration, skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		for _, p := range skipPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			dto.AbortWithCode(c, dto.ErrorCodeTimeout, "request exceeded "+timeout.String())
		}
	}
}
