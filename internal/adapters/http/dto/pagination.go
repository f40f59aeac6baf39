package dto

import (
	"encoding/base64"
	"errors"

	"github.com/goccy/go-json"
)

// Page size bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidCursor rejects a cursor that does not decode or belongs to
// another list.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest binds ?cursor=&limit=.
type PaginationRequest struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"  validate:"omitempty,gte=1,lte=100"`
}

// GetLimit clamps Limit to [1, MaxLimit], defaulting to DefaultLimit.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// PaginatedResponse is one page of a list.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// MapItems converts the items of p, keeping its cursor.
func MapItems[T, U any](p *PaginatedResponse[T], f func(T) U) PaginatedResponse[U] {
	items := make([]U, len(p.Items))
	for i, item := range p.Items {
		items[i] = f(item)
	}

	return PaginatedResponse[U]{Items: items, NextCursor: p.NextCursor, HasMore: p.HasMore}
}

// cursor points at the last item served from a named list. ID lets a
// page resume correctly when items were added or removed in between.
type cursor struct {
	List  string `json:"l"`
	Index int    `json:"i"`
	ID    string `json:"id"`
}

func (c cursor) encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s, list string) (cursor, error) {
	var c cursor

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || json.Unmarshal(b, &c) != nil || c.List != list || c.Index < 0 {
		return cursor{}, ErrInvalidCursor
	}

	return c, nil
}

// Page returns the window of items selected by req. list names the
// collection so a cursor from one list is rejected by another.
func Page[T any](items []T, req *PaginationRequest, list string, idOf func(T) string) (*PaginatedResponse[T], error) {
	start := 0

	if req.Cursor != "" {
		c, err := decodeCursor(req.Cursor, list)
		if err != nil {
			return nil, err
		}

		start = resumeAfter(items, c, idOf)
	}

	if start >= len(items) {
		return &PaginatedResponse[T]{Items: []T{}}, nil
	}

	end := min(start+req.GetLimit(), len(items))
	page := &PaginatedResponse[T]{Items: items[start:end], HasMore: end < len(items)}

	if page.HasMore {
		page.NextCursor = cursor{List: list, Index: end - 1, ID: idOf(items[end-1])}.encode()
	}

	return page, nil
}

func resumeAfter[T any](items []T, c cursor, idOf func(T) string) int {
	if c.Index < len(items) && idOf(items[c.Index]) == c.ID {
		return c.Index + 1
	}

	for i, item := range items {
		if idOf(item) == c.ID {
			return i + 1
		}
	}

	return c.Index + 1
}
