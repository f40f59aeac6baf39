package domain

import (
	"cmp"
	"slices"
)

const topCountLimit = 5

// Count is a label with the number of times it occurred.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Projection is a heuristic forecast for the coming week.
type Projection struct {
	Streak        int `json:"streak"`
	ExpectedViews int `json:"expectedViews"`
}

// Statistics summarizes the profile's engagement.
type Statistics struct {
	TotalDaysActive   int        `json:"totalDaysActive"`
	TotalQuotesViewed int        `json:"totalQuotesViewed"`
	TotalQuotesSaved  int        `json:"totalQuotesSaved"`
	CurrentStreak     int        `json:"currentStreak"`
	LongestStreak     int        `json:"longestStreak"`
	SavedCount        int        `json:"savedCount"`
	LikedCount        int        `json:"likedCount"`
	TopCategories     []Count    `json:"topCategories"`
	TopAuthors        []Count    `json:"topAuthors"`
	NextWeek          Projection `json:"nextWeek"`
}

// ComputeStatistics aggregates the tracker record and the user's lists.
// Category and author counts cover saved quotes and viewing history.
func ComputeStatistics(rec StreakRecord, saved, liked Collection, history History, today DateKey) Statistics {
	categories := map[string]int{}
	authors := map[string]int{}

	tally := func(q Quote) {
		if q.Category != "" {
			categories[q.Category]++
		}

		if q.Author != "" {
			authors[q.Author]++
		}
	}

	for _, cq := range saved {
		tally(cq.Quote)
	}

	for _, e := range history {
		tally(e.Quote)
	}

	return Statistics{
		TotalDaysActive:   rec.TotalDaysActive,
		TotalQuotesViewed: rec.TotalQuotesViewed,
		TotalQuotesSaved:  rec.TotalQuotesSaved,
		CurrentStreak:     rec.CurrentStreak,
		LongestStreak:     rec.LongestStreak,
		SavedCount:        len(saved),
		LikedCount:        len(liked),
		TopCategories:     topCounts(categories, topCountLimit),
		TopAuthors:        topCounts(authors, topCountLimit),
		NextWeek:          ProjectNextWeek(rec, today),
	}
}

// ProjectNextWeek is a static heuristic: a streak active this week is assumed to
// continue for seven more days, and views keep this week's daily average.
func ProjectNextWeek(rec StreakRecord, today DateKey) Projection {
	week := TrimWeek(rec.WeeklyHistory, today)
	if len(week) == 0 {
		return Projection{Streak: 1}
	}

	views, _ := WeekTotals(rec, today)

	return Projection{
		Streak:        rec.CurrentStreak + WeekLength,
		ExpectedViews: views * WeekLength / len(week),
	}
}

func topCounts(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}

	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Label, b.Label)
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out
}
