// Package dto holds the JSON shapes of the HTTP API and the helpers that
// turn domain errors into them.
package dto

import "net/http"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail is the machine code plus a message safe to show a user.
// Details maps request fields to problems for validation failures.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes.
const (
	ErrorCodeNotFound    = "NOT_FOUND"
	ErrorCodeConflict    = "CONFLICT"
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeBadRequest  = "BAD_REQUEST"
	ErrorCodeRateLimited = "RATE_LIMITED"
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout     = "TIMEOUT"
	ErrorCodeInternal    = "INTERNAL_ERROR"
)

var codeStatus = map[string]int{
	ErrorCodeNotFound:    http.StatusNotFound,
	ErrorCodeConflict:    http.StatusConflict,
	ErrorCodeValidation:  http.StatusBadRequest,
	ErrorCodeBadRequest:  http.StatusBadRequest,
	ErrorCodeRateLimited: http.StatusTooManyRequests,
	ErrorCodeUnavailable: http.StatusServiceUnavailable,
	ErrorCodeTimeout:     http.StatusGatewayTimeout,
}

// NewErrorResponse builds an envelope without details.
func NewErrorResponse(code, message string) *ErrorResponse {
	return NewErrorResponseWithDetails(code, message, nil)
}

// NewErrorResponseWithDetails builds an envelope with per-field details.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}}
}

// WithTraceID sets the trace ID and returns e for chaining.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode returns the status for code; unknown codes are 500.
func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}
