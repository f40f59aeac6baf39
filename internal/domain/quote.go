package domain

import "strings"

// Quote is a single motivational quote from the corpus.
type Quote struct {
	ID       string `json:"id,omitempty"       yaml:"id"`
	Text     string `json:"text"               yaml:"text"     validate:"required"`
	Author   string `json:"author"             yaml:"author"`
	Category string `json:"category,omitempty" yaml:"category"`
	Source   string `json:"source,omitempty"   yaml:"source"`
}

// IdentityKey returns the key used to deduplicate quotes.
// Quotes with an ID are identified by it; others by normalized text and author.
func (q Quote) IdentityKey() string {
	if q.ID != "" {
		return "id:" + q.ID
	}

	return "text:" + q.contentKey()
}

// SameAs reports whether two quotes refer to the same quote.
// When both carry an ID the IDs decide, otherwise normalized text and author are compared.
func (q Quote) SameAs(other Quote) bool {
	if q.ID != "" && other.ID != "" {
		return q.ID == other.ID
	}

	return q.contentKey() == other.contentKey()
}

// IsZero reports whether the quote has no text.
func (q Quote) IsZero() bool {
	return strings.TrimSpace(q.Text) == ""
}

func (q Quote) contentKey() string {
	return NormalizeText(q.Text) + "|" + NormalizeText(q.Author)
}

// NormalizeText lowercases s and trims surrounding whitespace.
// Punctuation is significant.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DefaultQuote is served when no quote can be selected.
func DefaultQuote() Quote {
	return Quote{
		ID:       "default",
		Text:     "The secret of getting ahead is getting started.",
		Author:   "Mark Twain",
		Category: "motivation",
		Source:   "builtin",
	}
}

// QuoteList is an ordered, in-memory corpus.
type QuoteList []Quote

// Len returns the number of quotes.
func (l QuoteList) Len() int { return len(l) }

// At returns the quote at index i.
func (l QuoteList) At(i int) Quote { return l[i] }

// Corpus is read-only indexed access to a list of quotes.
type Corpus interface {
	Len() int
	At(i int) Quote
}
