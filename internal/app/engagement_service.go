package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/daily-quote/internal/app/keyspace"
	"github.com/jsamuelsen/daily-quote/internal/app/staging"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// EngagementService tracks reading streaks, viewing history and the weekly recap.
type EngagementService struct {
	profile      *Profile
	policy       domain.StreakPolicy
	historyLimit int
}

// EngagementServiceConfig contains configuration for the engagement service.
type EngagementServiceConfig struct {
	Profile      *Profile
	Policy       domain.StreakPolicy
	HistoryLimit int
}

// NewEngagementService creates an engagement service. Profile is required.
func NewEngagementService(cfg EngagementServiceConfig) *EngagementService {
	if cfg.Profile == nil {
		panic("app: Profile is required")
	}

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = domain.DefaultHistoryLimit
	}

	return &EngagementService{profile: cfg.Profile, policy: cfg.Policy, historyLimit: cfg.HistoryLimit}
}

// GetStreak returns the stored record. A missing or malformed record reads as zero.
func (s *EngagementService) GetStreak(ctx context.Context) domain.StreakRecord {
	return load(ctx, s.profile, keyspace.Streak, domain.StreakRecord{})
}

// UpdateReadingStreak records one activity of kind for today and persists the record.
func (s *EngagementService) UpdateReadingStreak(ctx context.Context, kind domain.ActivityKind) (domain.StreakRecord, error) {
	if _, err := domain.ParseActivityKind(string(kind)); err != nil {
		return domain.StreakRecord{}, err
	}

	defer s.profile.lock()()

	b := staging.New()

	rec, err := stageActivity(ctx, s.profile, s.policy, b, kind)
	if err != nil {
		return domain.StreakRecord{}, err
	}

	if err := b.Commit(ctx); err != nil {
		s.profile.storageFailed(ctx, "failed to store streak", err)
		return domain.StreakRecord{}, err
	}

	s.activityRecorded(ctx, kind, rec)

	return rec, nil
}

// RecordView records a view of q: the streak counts a view and q is added to today's history.
// Both keys are written together; if either write fails neither is kept.
func (s *EngagementService) RecordView(ctx context.Context, q domain.Quote) (domain.StreakRecord, error) {
	if q.IsZero() {
		return domain.StreakRecord{}, domain.NewValidationError("quote", "is required")
	}

	defer s.profile.lock()()

	b := staging.New()
	today := s.profile.Today()

	history, err := staging.Fetch(ctx, b, keyspace.QuoteHistory.Name(), func(ctx context.Context) (domain.History, error) {
		return load(ctx, s.profile, keyspace.QuoteHistory, domain.History{}), nil
	})
	if err != nil {
		return domain.StreakRecord{}, err
	}

	if next, changed := history.Record(q, today, s.profile.Now(), s.historyLimit); changed {
		if err := b.Add(keyspace.Stage(s.profile.store, keyspace.QuoteHistory, next)); err != nil {
			return domain.StreakRecord{}, err
		}
	}

	rec, err := stageActivity(ctx, s.profile, s.policy, b, domain.ActivityView)
	if err != nil {
		return domain.StreakRecord{}, err
	}

	if err := b.Commit(ctx); err != nil {
		s.profile.storageFailed(ctx, "failed to store view", err)
		return domain.StreakRecord{}, err
	}

	s.activityRecorded(ctx, domain.ActivityView, rec)

	return rec, nil
}

// GetWeeklyRecap summarizes the 7 days ending today from the streak record's
// daily counters, so activity recorded without a quote is included.
func (s *EngagementService) GetWeeklyRecap(ctx context.Context) (domain.WeeklyRecap, error) {
	today := s.profile.Today()
	rec := load(ctx, s.profile, keyspace.Streak, domain.StreakRecord{})
	views, saves := domain.WeekTotals(rec, today)

	return domain.BuildWeeklyRecap(rec, today, saves, views), nil
}

// History returns the viewing history, newest first.
func (s *EngagementService) History(ctx context.Context) domain.History {
	return load(ctx, s.profile, keyspace.QuoteHistory, domain.History{})
}

func (s *EngagementService) activityRecorded(ctx context.Context, kind domain.ActivityKind, rec domain.StreakRecord) {
	s.profile.metrics.ActivityRecorded(kind)
	s.profile.publish(ctx, domain.StreakUpdated{Kind: kind, Record: rec})
	s.profile.logFor(ctx).InfoContext(ctx, "activity recorded",
		slog.String("kind", string(kind)),
		slog.Int("current_streak", rec.CurrentStreak),
		slog.Int("longest_streak", rec.LongestStreak))
}

// stageActivity applies kind for today to the batch's streak record and stages the write.
// The caller holds the profile lock.
func stageActivity(
	ctx context.Context,
	p *Profile,
	policy domain.StreakPolicy,
	b *staging.Batch,
	kind domain.ActivityKind,
) (domain.StreakRecord, error) {
	rec, err := staging.Fetch(ctx, b, keyspace.Streak.Name(), func(ctx context.Context) (domain.StreakRecord, error) {
		return load(ctx, p, keyspace.Streak, domain.StreakRecord{}), nil
	})
	if err != nil {
		return domain.StreakRecord{}, err
	}

	next := policy.RecordActivity(rec, p.Today(), kind)

	if err := b.Add(keyspace.Stage(p.store, keyspace.Streak, next)); err != nil {
		return domain.StreakRecord{}, err
	}

	return next, nil
}
