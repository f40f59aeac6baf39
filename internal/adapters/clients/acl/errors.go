package acl

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/jsamuelsen/daily-quote/internal/adapters/clients"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// ErrorResponse is the error body of a quotable-style API.
// Both {"statusCode":404,"statusMessage":"..."} and {"message":"..."} are accepted.
type ErrorResponse struct {
	StatusCode    int    `json:"statusCode,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
	Message       string `json:"message,omitempty"`
}

// GetMessage returns whichever message field was populated.
func (e *ErrorResponse) GetMessage() string {
	if e.StatusMessage != "" {
		return e.StatusMessage
	}

	return e.Message
}

// ParseErrorResponse decodes body, returning nil when it carries no message.
func ParseErrorResponse(body []byte) *ErrorResponse {
	if len(body) == 0 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}

// MapError translates a client failure into a domain error. entityID is
// reported on NotFound.
func MapError(err error, serviceName, operation, entityID string) error {
	if err == nil {
		return nil
	}

	var status *clients.StatusError

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.NewUnavailableError(serviceName, fmt.Sprintf("%s interrupted: %v", operation, err))

	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("circuit breaker open during %s", operation))

	case errors.Is(err, clients.ErrRetriesExhausted):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("retries exhausted during %s: %s", operation, describe(err)))

	case errors.As(err, &status):
		return mapStatusCode(status.Code, ParseErrorResponse(status.Body), serviceName, operation, entityID)

	case errors.Is(err, clients.ErrMalformedBody):
		return domain.NewUnavailableError(serviceName, fmt.Sprintf("%s returned a malformed body", operation))

	default:
		return domain.NewUnavailableError(serviceName, fmt.Sprintf("%s failed: %v", operation, err))
	}
}

// describe prefers the remote's own message for a failed status.
func describe(err error) string {
	var status *clients.StatusError
	if errors.As(err, &status) {
		if parsed := ParseErrorResponse(status.Body); parsed != nil {
			return parsed.GetMessage()
		}

		return fmt.Sprintf("status %d", status.Code)
	}

	return err.Error()
}

func mapStatusCode(status int, errResp *ErrorResponse, serviceName, operation, entityID string) error {
	message := defaultMessageForStatus(status, operation)
	if errResp != nil {
		message = errResp.GetMessage()
	}

	switch status {
	case http.StatusNotFound:
		return domain.NewNotFoundError(serviceName, entityID)

	case http.StatusConflict:
		return domain.NewConflictError(serviceName, message)

	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.NewValidationError(operation, message)

	// A rejected credential or quota makes the source unusable, not the caller's input wrong.
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return domain.NewUnavailableError(serviceName, message)

	default:
		if status >= http.StatusInternalServerError {
			return domain.NewUnavailableError(serviceName, message)
		}

		return domain.NewValidationError(operation, message)
	}
}

func defaultMessageForStatus(status int, operation string) string {
	switch status {
	case http.StatusConflict:
		return "resource conflict"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	default:
		return fmt.Sprintf("%s failed with status %d", operation, status)
	}
}
