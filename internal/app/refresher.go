package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// ReminderLayout is the clock format of the daily reminder time.
const ReminderLayout = "15:04"

// Refresher pre-warms the daily quote when the date changes and announces the daily reminder.
// Readers never depend on it: every read checks staleness itself.
type Refresher struct {
	quotes     *QuoteService
	engagement *EngagementService
	profile    *Profile
	interval   time.Duration

	// reminder is the offset from local midnight; negative disables reminders.
	reminder time.Duration

	lastDay     domain.DateKey
	reminderDay domain.DateKey
}

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	Quotes     *QuoteService
	Engagement *EngagementService
	Interval   time.Duration
	// ReminderTime is HH:MM local time; empty disables reminders.
	ReminderTime string
}

// NewRefresher validates cfg and creates a refresher.
func NewRefresher(cfg RefresherConfig) (*Refresher, error) {
	if cfg.Quotes == nil || cfg.Engagement == nil {
		return nil, errors.New("refresher: quote and engagement services are required")
	}

	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	r := &Refresher{
		quotes:     cfg.Quotes,
		engagement: cfg.Engagement,
		profile:    cfg.Quotes.profile,
		interval:   cfg.Interval,
		reminder:   -1,
	}

	if cfg.ReminderTime != "" {
		t, err := time.Parse(ReminderLayout, cfg.ReminderTime)
		if err != nil {
			return nil, domain.NewValidationErrorWithValue("reminder_time", "must be HH:MM", cfg.ReminderTime)
		}

		r.reminder = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	}

	return r, nil
}

// Serve ticks until ctx is done.
func (r *Refresher) Serve(ctx context.Context) error {
	ctx = logging.WithComponent(r.withLogger(ctx), "refresher")

	r.Tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one refresh cycle. It is not safe for concurrent use.
func (r *Refresher) Tick(ctx context.Context) {
	today := r.profile.Today()
	ctx = logging.WithDateKey(r.withLogger(ctx), today.String())
	logger := logging.FromContext(ctx)

	if today != r.lastDay {
		dq := r.quotes.GetDailyQuote(ctx)
		r.lastDay = today

		logger.InfoContext(ctx, "daily quote ready",
			slog.String("quote_id", dq.Quote.ID),
			slog.String("origin", dq.Origin))
	}

	if r.reminder < 0 || r.reminderDay == today {
		return
	}

	if r.profile.Now().Before(r.profile.StartOf(today).Add(r.reminder)) {
		return
	}

	rec := r.engagement.GetStreak(ctx)
	r.reminderDay = today

	r.profile.publish(ctx, domain.ReminderDue{
		DateKey:       today,
		CurrentStreak: rec.CurrentStreak,
		ActiveToday:   rec.LastActiveDate == today,
	})

	logger.InfoContext(ctx, "reminder due", slog.Int("current_streak", rec.CurrentStreak))
}

// withLogger pins the profile logger into ctx unless the caller already set one.
func (r *Refresher) withLogger(ctx context.Context) context.Context {
	return logging.WithContext(ctx, logging.FromContextOr(ctx, r.profile.logger))
}

// String names the service in supervisor logs.
func (r *Refresher) String() string { return "refresher" }
