package domain

import (
	"slices"
	"time"
)

// DefaultHistoryLimit caps the number of remembered views.
const DefaultHistoryLimit = 100

// HistoryEntry records that a quote was shown on a given day.
type HistoryEntry struct {
	Quote    Quote     `json:"quote"`
	DateKey  DateKey   `json:"dateKey"  validate:"datekey"`
	ViewedAt time.Time `json:"viewedAt"`
}

// History is the list of viewed quotes, newest first.
type History []HistoryEntry

// Record prepends a view of q on day unless that quote was already seen that day.
// The result is capped at limit entries; a non-positive limit uses DefaultHistoryLimit.
func (h History) Record(q Quote, day DateKey, at time.Time, limit int) (History, bool) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	seen := slices.ContainsFunc(h, func(e HistoryEntry) bool {
		return e.DateKey == day && e.Quote.SameAs(q)
	})
	if seen {
		return h, false
	}

	next := make(History, 0, min(len(h)+1, limit))
	next = append(next, HistoryEntry{Quote: q, DateKey: day, ViewedAt: at})
	next = append(next, h[:min(len(h), limit-1)]...)

	return next, true
}
