package domain

import (
	"slices"
	"time"
)

// CollectionName identifies one of the user's quote lists.
type CollectionName string

// Collections.
const (
	CollectionSaved CollectionName = "saved"
	CollectionLiked CollectionName = "liked"
)

// ParseCollectionName validates s.
func ParseCollectionName(s string) (CollectionName, error) {
	switch c := CollectionName(s); c {
	case CollectionSaved, CollectionLiked:
		return c, nil
	default:
		return "", NewValidationErrorWithValue("collection", "must be one of: saved liked", s)
	}
}

// CollectedQuote is a quote the user kept, stamped with when it was added.
type CollectedQuote struct {
	Quote

	CreatedAt time.Time `json:"createdAt"`
}

// Collection is an append-ordered list of quotes, unique by identity.
type Collection []CollectedQuote

// Contains reports whether q is already in the collection.
func (c Collection) Contains(q Quote) bool {
	return c.indexOf(q) >= 0
}

// Add appends q unless an equivalent quote is present.
// The returned bool reports whether the collection changed.
func (c Collection) Add(q Quote, at time.Time) (Collection, bool) {
	if c.Contains(q) {
		return c, false
	}

	return append(slices.Clone(c), CollectedQuote{Quote: q, CreatedAt: at}), true
}

// Remove drops the entry equivalent to q.
func (c Collection) Remove(q Quote) (Collection, bool) {
	i := c.indexOf(q)
	if i < 0 {
		return c, false
	}

	return slices.Delete(slices.Clone(c), i, i+1), true
}

// FindByID returns the entry whose quote ID is id.
func (c Collection) FindByID(id string) (CollectedQuote, bool) {
	i := slices.IndexFunc(c, func(cq CollectedQuote) bool { return cq.ID == id })
	if i < 0 {
		return CollectedQuote{}, false
	}

	return c[i], true
}

func (c Collection) indexOf(q Quote) int {
	return slices.IndexFunc(c, func(cq CollectedQuote) bool { return cq.SameAs(q) })
}
