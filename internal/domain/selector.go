package domain

// DailyQuoteCache is the persisted pick for a single calendar day.
type DailyQuoteCache struct {
	Quote   Quote   `json:"quote"`
	DateKey DateKey `json:"dateKey"`
}

// Selection is the outcome of a daily quote pick.
type Selection struct {
	Quote     Quote
	Cache     DailyQuoteCache
	FromCache bool
	Index     int
}

// StableHash is a 32-bit polynomial string hash (h = h*31 + b).
// It depends only on the bytes of s, so every platform agrees on the result.
func StableHash(s string) uint32 {
	var h uint32

	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}

	return h
}

// DayIndex maps a day onto [0, n). n must be positive.
func DayIndex(day DateKey, n int) int {
	return int(StableHash(string(day)) % uint32(n)) //nolint:gosec // n > 0 and fits in uint32 for any in-memory corpus
}

// IsStale reports whether cache cannot be served for today.
func IsStale(cache *DailyQuoteCache, today DateKey) bool {
	return cache == nil || cache.DateKey != today || cache.Quote.IsZero()
}

// SelectDailyQuote returns the quote for today.
//
// A fresh cache is returned unchanged without reading the corpus. Otherwise, or when
// force is set, the quote at DayIndex(today, corpus.Len()) is picked and a new cache
// entry is returned for the caller to persist.
func SelectDailyQuote(corpus Corpus, today DateKey, cache *DailyQuoteCache, force bool) (Selection, error) {
	if !today.Valid() {
		return Selection{}, NewValidationErrorWithValue("today", "must be formatted as YYYY-MM-DD", string(today))
	}

	if !force && !IsStale(cache, today) {
		return Selection{Quote: cache.Quote, Cache: *cache, FromCache: true, Index: -1}, nil
	}

	if corpus == nil || corpus.Len() == 0 {
		return Selection{}, NewEmptyCorpusError(today)
	}

	idx := DayIndex(today, corpus.Len())
	q := corpus.At(idx)

	return Selection{
		Quote: q,
		Cache: DailyQuoteCache{Quote: q, DateKey: today},
		Index: idx,
	}, nil
}
