package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// TraceIDKey is the gin context key a handler or middleware may set to override the trace ID.
const TraceIDKey = "trace_id"

// headerRequestID mirrors middleware.HeaderRequestID without importing it.
const headerRequestID = "X-Request-ID"

// MapDomainError maps a domain error to an HTTP status code and error response.
// Unknown errors become 500 with a generic message; dependency failures become
// 503 without the underlying cause.
func MapDomainError(err error) (int, *ErrorResponse) {
	switch {
	case err == nil:
		return http.StatusOK, nil

	// A storage error may wrap the backend's not-found; it is still a storage failure.
	case domain.IsStorage(err):
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, "storage temporarily unavailable")

	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsConflict(err):
		return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, err.Error())

	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{validationErr.Field: validationErr.Message}
		}

		return http.StatusBadRequest, resp

	case domain.IsUnavailable(err), domain.IsEmptyCorpus(err):
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, "service temporarily unavailable")

	default:
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
	}
}

// GetTraceID returns the trace ID for the request: an explicit context value,
// then the active span, then the request ID header.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(TraceIDKey); ok {
		id, _ := v.(string)
		return id
	}

	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return c.GetHeader(headerRequestID)
}

// HandleError writes the error envelope for err.
// Server-side failures are logged with their cause since the response hides it.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.WithTraceID(GetTraceID(c))

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			slog.Int("status", status),
			slog.String("trace_id", resp.TraceID),
			slog.Any("error", err),
		)
	}

	c.JSON(status, resp)
}

// AbortWithCode aborts the handler chain with an error envelope for code.
func AbortWithCode(c *gin.Context, code, message string) {
	resp := NewErrorResponse(code, message).WithTraceID(GetTraceID(c))
	c.AbortWithStatusJSON(HTTPStatusFromCode(code), resp)
}

// RespondWithValidationErrors writes a 400 with field-level messages from a binding failure.
func RespondWithValidationErrors(c *gin.Context, err error) {
	details := ValidationErrors(err)

	message := "request validation failed"
	if len(details) == 0 {
		message = err.Error()
	}

	resp := NewErrorResponseWithDetails(ErrorCodeValidation, message, details).WithTraceID(GetTraceID(c))
	c.JSON(http.StatusBadRequest, resp)
}
