package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/daily-quote/internal/app"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// execute runs quotectl against a file store in dir and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	out := new(bytes.Buffer)

	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--storage", "file", "--data", dir, "--timezone", "UTC"}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func executeJSON[T any](t *testing.T, dir string, args ...string) T {
	t.Helper()

	out, err := execute(t, dir, args...)
	require.NoError(t, err)

	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)

	return v
}

func TestToday(t *testing.T) {
	dir := t.TempDir()

	first := executeJSON[todayOutput](t, dir, "today")
	assert.Equal(t, app.OriginSelector, first.Origin)
	assert.Nil(t, first.Streak)

	second := executeJSON[todayOutput](t, dir, "today", "--view")
	assert.Equal(t, app.OriginCache, second.Origin, "the selection is stored between runs")
	assert.Equal(t, first.Quote.ID, second.Quote.ID)
	require.NotNil(t, second.Streak)
	assert.Equal(t, 1, second.Streak.CurrentStreak)

	history := executeJSON[domain.History](t, dir, "history")
	assert.Len(t, history, 1)
}

func TestSaveAndList(t *testing.T) {
	dir := t.TempDir()

	saved := executeJSON[app.CollectionResult](t, dir, "save", "q001")
	assert.True(t, saved.Changed)
	assert.Equal(t, 1, saved.Size)

	liked := executeJSON[app.CollectionResult](t, dir, "like", "q002")
	assert.Equal(t, domain.CollectionLiked, liked.Collection)

	list := executeJSON[domain.Collection](t, dir, "saved")
	require.Len(t, list, 1)
	assert.Equal(t, "q001", list[0].Quote.ID)

	streak := executeJSON[domain.StreakRecord](t, dir, "streak")
	assert.Equal(t, 1, streak.TotalQuotesSaved)

	stats := executeJSON[domain.Statistics](t, dir, "stats")
	assert.Equal(t, 1, stats.SavedCount)
	assert.Equal(t, 1, stats.LikedCount)

	unsaved := executeJSON[app.CollectionResult](t, dir, "unsave", "q001")
	assert.Equal(t, 0, unsaved.Size)
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()

	habits := executeJSON[[]domain.Quote](t, dir, "search", "--category", "habits")
	assert.Len(t, habits, 3)

	twain := executeJSON[[]domain.Quote](t, dir, "search", "mark twain", "-n", "1")
	require.Len(t, twain, 1)
	assert.Equal(t, "q001", twain[0].ID)

	_, err := execute(t, dir, "search", "--limit", "500")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown quote", []string{"save", "q999"}},
		{"missing id", []string{"like"}},
		{"unknown command", []string{"publish"}},
		{"bad driver", []string{"--storage", "floppy", "streak"}},
		{"bad timezone", []string{"--timezone", "Mars/Olympus", "today"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, t.TempDir(), tt.args...)
			require.Error(t, err)
		})
	}
}
