// Package middleware provides the gin middleware chain for the quote API.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

const (
	// HeaderRequestID identifies one HTTP request.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID spans every request made on behalf of one user action,
	// including the remote corpus calls a reload makes.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin context key for the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyCorrelationID
)

// RequestID takes X-Request-ID from the request or generates one, echoes it in
// the response and attaches it to the request context and logger.
func RequestID() gin.HandlerFunc {
	return propagateID(HeaderRequestID, ContextKeyRequestID, func(ctx context.Context, id string) context.Context {
		return logging.WithRequestID(ContextWithRequestID(ctx, id), id)
	})
}

// CorrelationID does for X-Correlation-ID what RequestID does for X-Request-ID.
func CorrelationID() gin.HandlerFunc {
	return propagateID(HeaderCorrelationID, ContextKeyCorrelationID, func(ctx context.Context, id string) context.Context {
		return logging.WithCorrelationID(ContextWithCorrelationID(ctx, id), id)
	})
}

func propagateID(header, key string, enrich func(context.Context, string) context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(key, id)
		c.Header(header, id)
		c.Request = c.Request.WithContext(enrich(c.Request.Context(), id))

		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation ID set by CorrelationID, or "".
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}

// ContextWithRequestID stores a request ID for outbound clients to forward.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextWithCorrelationID stores a correlation ID for outbound clients to forward.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

// RequestIDFromContext returns the stored request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// CorrelationIDFromContext returns the stored correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyCorrelationID).(string)
	return id
}
