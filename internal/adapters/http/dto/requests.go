package dto

import (
	"fmt"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// TodayRequest binds GET /quotes/today.
type TodayRequest struct {
	// Force picks a new quote for today even when one is stored.
	Force bool `form:"force"`
}

// SearchRequest binds GET /quotes/search.
type SearchRequest struct {
	Query    string `form:"q"        validate:"omitempty,max=200"`
	Category string `form:"category" validate:"omitempty,max=64"`
	Limit    int    `form:"limit"    validate:"omitempty,gte=1,lte=100"`
}

// ActivityRequest is the body of POST /streak/activity.
type ActivityRequest struct {
	Kind string `json:"kind" validate:"required,oneof=view save"`
}

// ActivityKind returns the validated kind as a domain value.
func (r ActivityRequest) ActivityKind() domain.ActivityKind {
	return domain.ActivityKind(r.Kind)
}

// CollectionRequest is the body of POST /collections/{saved,liked}.
type CollectionRequest struct {
	QuoteID string `json:"quoteId" validate:"required,quoteid"`
}

// ValidateQuoteID checks a quote id taken from a path parameter.
func ValidateQuoteID(id string) error {
	if err := Validator().Var(id, "required,quoteid"); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

