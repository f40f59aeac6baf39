package domain

import "slices"

// WeekLength is the number of calendar days in a weekly window, today included.
const WeekLength = 7

// ActivityKind is a user interaction counted by the tracker.
type ActivityKind string

// Activity kinds.
const (
	ActivityView ActivityKind = "view"
	ActivitySave ActivityKind = "save"
)

// ParseActivityKind validates s.
func ParseActivityKind(s string) (ActivityKind, error) {
	switch k := ActivityKind(s); k {
	case ActivityView, ActivitySave:
		return k, nil
	default:
		return "", NewValidationErrorWithValue("kind", "must be one of: view save", s)
	}
}

// DayActivity counts interactions on a single active day.
type DayActivity struct {
	Date  DateKey `json:"date"  validate:"datekey"`
	Views int     `json:"views" validate:"gte=0"`
	Saves int     `json:"saves" validate:"gte=0"`
}

// StreakRecord is the persisted engagement state of the single local profile.
type StreakRecord struct {
	CurrentStreak     int           `json:"currentStreak"            validate:"gte=0"`
	LongestStreak     int           `json:"longestStreak"            validate:"gte=0"`
	LastActiveDate    DateKey       `json:"lastActiveDate,omitempty" validate:"omitempty,datekey"`
	GracePeriodUsed   bool          `json:"gracePeriodUsed"`
	TotalDaysActive   int           `json:"totalDaysActive"          validate:"gte=0"`
	TotalQuotesSaved  int           `json:"totalQuotesSaved"         validate:"gte=0"`
	TotalQuotesViewed int           `json:"totalQuotesViewed"        validate:"gte=0"`
	WeeklyHistory     []DayActivity `json:"weeklyHistory"            validate:"dive"`
}

// StreakPolicy controls how many missed days a streak survives.
type StreakPolicy struct {
	// GraceDays is the number of consecutive missed days forgiven once per run.
	GraceDays int
}

// DefaultStreakPolicy forgives a single missed day.
func DefaultStreakPolicy() StreakPolicy {
	return StreakPolicy{GraceDays: 1}
}

// RecordActivity applies the default policy.
func RecordActivity(rec StreakRecord, today DateKey, kind ActivityKind) StreakRecord {
	return DefaultStreakPolicy().RecordActivity(rec, today, kind)
}

// RecordActivity returns rec updated for an interaction of kind on today.
// The input record is not modified.
func (p StreakPolicy) RecordActivity(rec StreakRecord, today DateKey, kind ActivityKind) StreakRecord {
	next := rec
	next.WeeklyHistory = slices.Clone(rec.WeeklyHistory)

	gap := -1
	if rec.LastActiveDate.Valid() {
		gap = today.DaysSince(rec.LastActiveDate)
	}

	switch {
	case rec.LastActiveDate.Valid() && gap <= 0:
		// Same day, or a clock that moved backwards: counters only.
	case gap == 1:
		next.CurrentStreak++
		next.GracePeriodUsed = false
		next.TotalDaysActive++
	case gap >= 2 && gap <= p.GraceDays+1 && !rec.GracePeriodUsed:
		next.CurrentStreak++
		next.GracePeriodUsed = true
		next.TotalDaysActive++
	default:
		next.CurrentStreak = 1
		next.GracePeriodUsed = false
		next.TotalDaysActive++
	}

	if next.CurrentStreak < 1 {
		next.CurrentStreak = 1
	}

	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
	next.LastActiveDate = today

	switch kind {
	case ActivityView:
		next.TotalQuotesViewed++
	case ActivitySave:
		next.TotalQuotesSaved++
	}

	next.WeeklyHistory = bumpDay(next.WeeklyHistory, today, kind)

	return next
}

func bumpDay(history []DayActivity, today DateKey, kind ActivityKind) []DayActivity {
	i := slices.IndexFunc(history, func(d DayActivity) bool { return d.Date == today })
	if i < 0 {
		history = append(history, DayActivity{Date: today})
		i = len(history) - 1
	}

	switch kind {
	case ActivityView:
		history[i].Views++
	case ActivitySave:
		history[i].Saves++
	}

	return TrimWeek(history, today)
}

// TrimWeek keeps entries within the WeekLength days ending today, oldest first.
func TrimWeek(history []DayActivity, today DateKey) []DayActivity {
	from := today.AddDays(-(WeekLength - 1))

	kept := slices.DeleteFunc(slices.Clone(history), func(d DayActivity) bool {
		return d.Date.Before(from) || today.Before(d.Date)
	})

	slices.SortFunc(kept, func(a, b DayActivity) int {
		switch {
		case a.Date < b.Date:
			return -1
		case a.Date > b.Date:
			return 1
		default:
			return 0
		}
	})

	return kept
}

// WeeklyRecap summarizes the last seven days.
type WeeklyRecap struct {
	DaysActive    int `json:"daysActive"`
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
	QuotesSaved   int `json:"quotesSaved"`
	QuotesViewed  int `json:"quotesViewed"`
}

// BuildWeeklyRecap projects rec into a recap. It never mutates rec.
func BuildWeeklyRecap(rec StreakRecord, today DateKey, quotesSaved, quotesViewed int) WeeklyRecap {
	return WeeklyRecap{
		DaysActive:    len(TrimWeek(rec.WeeklyHistory, today)),
		CurrentStreak: rec.CurrentStreak,
		LongestStreak: rec.LongestStreak,
		QuotesSaved:   quotesSaved,
		QuotesViewed:  quotesViewed,
	}
}

// WeekTotals sums views and saves within the week ending today.
func WeekTotals(rec StreakRecord, today DateKey) (views, saves int) {
	for _, d := range TrimWeek(rec.WeeklyHistory, today) {
		views += d.Views
		saves += d.Saves
	}

	return views, saves
}
