package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCorpus records every access to the underlying list.
type countingCorpus struct {
	quotes QuoteList
	reads  int
}

func (c *countingCorpus) Len() int {
	c.reads++
	return c.quotes.Len()
}

func (c *countingCorpus) At(i int) Quote {
	c.reads++
	return c.quotes.At(i)
}

func testCorpus(n int) QuoteList {
	out := make(QuoteList, n)
	for i := range out {
		out[i] = Quote{ID: fmt.Sprintf("q-%d", i), Text: fmt.Sprintf("quote %d", i), Author: "Author"}
	}

	return out
}

func TestStableHash(t *testing.T) {
	tests := []struct {
		input    string
		expected uint32
	}{
		{"", 0},
		{"a", 97},
		{"ab", 97*31 + 98},
		{"2024-01-01", 3681625664},
		{"2024-01-02", 3681625665},
		{"2024-03-15", 3681685281},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, StableHash(tt.input))
		})
	}
}

func TestSelectDailyQuote_Deterministic(t *testing.T) {
	corpus := testCorpus(10)

	first, err := SelectDailyQuote(corpus, "2024-03-15", nil, false)
	require.NoError(t, err)

	for range 5 {
		again, err := SelectDailyQuote(corpus, "2024-03-15", nil, false)
		require.NoError(t, err)
		assert.Equal(t, first.Quote, again.Quote)
	}

	assert.Equal(t, 1, first.Index)
	assert.Equal(t, corpus[1], first.Quote)
	assert.False(t, first.FromCache)
	assert.Equal(t, DailyQuoteCache{Quote: corpus[1], DateKey: "2024-03-15"}, first.Cache)
}

func TestSelectDailyQuote_IndexInRange(t *testing.T) {
	start := DateKey("2023-12-01")

	for _, n := range []int{1, 2, 3, 7, 10, 97} {
		corpus := testCorpus(n)

		for d := range 120 {
			day := start.AddDays(d)

			sel, err := SelectDailyQuote(corpus, day, nil, false)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, sel.Index, 0)
			assert.Less(t, sel.Index, n)
		}
	}
}

func TestSelectDailyQuote_CacheHitSkipsCorpus(t *testing.T) {
	spy := &countingCorpus{quotes: testCorpus(10)}
	cached := Quote{ID: "cached", Text: "from yesterday's save", Author: "Someone"}
	cache := &DailyQuoteCache{Quote: cached, DateKey: "2024-03-15"}

	sel, err := SelectDailyQuote(spy, "2024-03-15", cache, false)

	require.NoError(t, err)
	assert.True(t, sel.FromCache)
	assert.Equal(t, cached, sel.Quote)
	assert.Zero(t, spy.reads, "cache hit must not touch the corpus")
}

func TestSelectDailyQuote_StaleCacheRecomputed(t *testing.T) {
	corpus := testCorpus(10)

	day1, err := SelectDailyQuote(corpus, "2024-01-01", nil, false)
	require.NoError(t, err)
	assert.Equal(t, corpus[4], day1.Quote)

	day2, err := SelectDailyQuote(corpus, "2024-01-02", &day1.Cache, false)
	require.NoError(t, err)

	assert.False(t, day2.FromCache)
	assert.Equal(t, DateKey("2024-01-02"), day2.Cache.DateKey)
	assert.Equal(t, corpus[5], day2.Quote)
}

func TestSelectDailyQuote_ForceBypassesCache(t *testing.T) {
	corpus := testCorpus(10)
	cache := &DailyQuoteCache{Quote: Quote{Text: "stale pick"}, DateKey: "2024-03-15"}

	sel, err := SelectDailyQuote(corpus, "2024-03-15", cache, true)

	require.NoError(t, err)
	assert.False(t, sel.FromCache)
	assert.Equal(t, corpus[1], sel.Quote)
}

func TestSelectDailyQuote_Errors(t *testing.T) {
	tests := []struct {
		name    string
		corpus  Corpus
		today   DateKey
		cache   *DailyQuoteCache
		isError func(error) bool
	}{
		{"empty corpus", QuoteList{}, "2024-03-15", nil, IsEmptyCorpus},
		{"nil corpus", nil, "2024-03-15", nil, IsEmptyCorpus},
		{"stale cache with empty corpus", QuoteList{}, "2024-03-15", &DailyQuoteCache{Quote: Quote{Text: "x"}, DateKey: "2024-03-14"}, IsEmptyCorpus},
		{"malformed day", testCorpus(3), "15/03/2024", nil, IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SelectDailyQuote(tt.corpus, tt.today, tt.cache, false)
			require.Error(t, err)
			assert.True(t, tt.isError(err), "unexpected error: %v", err)
		})
	}
}

func TestSelectDailyQuote_EmptyCorpusStillServesFreshCache(t *testing.T) {
	cache := &DailyQuoteCache{Quote: Quote{Text: "kept"}, DateKey: "2024-03-15"}

	sel, err := SelectDailyQuote(QuoteList{}, "2024-03-15", cache, false)

	require.NoError(t, err)
	assert.Equal(t, "kept", sel.Quote.Text)
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		name     string
		cache    *DailyQuoteCache
		expected bool
	}{
		{"nil cache", nil, true},
		{"other day", &DailyQuoteCache{Quote: Quote{Text: "x"}, DateKey: "2024-01-01"}, true},
		{"blank quote", &DailyQuoteCache{DateKey: "2024-01-02"}, true},
		{"fresh", &DailyQuoteCache{Quote: Quote{Text: "x"}, DateKey: "2024-01-02"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsStale(tt.cache, "2024-01-02"))
		})
	}
}
