package app

import (
	"context"

	"github.com/jsamuelsen/daily-quote/internal/app/keyspace"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// StatsService builds the statistics panel.
type StatsService struct {
	profile *Profile
}

// NewStatsService creates a stats service.
func NewStatsService(p *Profile) *StatsService {
	if p == nil {
		panic("app: Profile is required")
	}

	return &StatsService{profile: p}
}

// Summary aggregates the streak record, both collections and the viewing history.
func (s *StatsService) Summary(ctx context.Context) (domain.Statistics, error) {
	rec, history, lists, err := Parallel3(ctx,
		func(ctx context.Context) (domain.StreakRecord, error) {
			return load(ctx, s.profile, keyspace.Streak, domain.StreakRecord{}), nil
		},
		func(ctx context.Context) (domain.History, error) {
			return load(ctx, s.profile, keyspace.QuoteHistory, domain.History{}), nil
		},
		func(ctx context.Context) ([]domain.Collection, error) {
			return Parallel(ctx,
				func(ctx context.Context) (domain.Collection, error) {
					return load(ctx, s.profile, keyspace.SavedQuotes, domain.Collection{}), nil
				},
				func(ctx context.Context) (domain.Collection, error) {
					return load(ctx, s.profile, keyspace.LikedQuotes, domain.Collection{}), nil
				},
			)
		},
	)
	if err != nil {
		return domain.Statistics{}, err
	}

	return domain.ComputeStatistics(rec, lists[0], lists[1], history, s.profile.Today()), nil
}
