// Package app contains the profile services the UI shell calls: the daily quote,
// engagement tracking, collections and statistics.
package app

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/jsamuelsen/daily-quote/internal/app/keyspace"
	"github.com/jsamuelsen/daily-quote/internal/app/staging"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// Quote origins reported with every served quote.
const (
	OriginCache    = "cache"
	OriginSelector = "selector"
	OriginFallback = "fallback"
	OriginRandom   = "random"
)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// DailyQuote is the quote shown for a day.
type DailyQuote struct {
	Quote   domain.Quote   `json:"quote"`
	DateKey domain.DateKey `json:"dateKey"`
	Origin  string         `json:"origin"`
}

// QuoteService serves the daily, random and searched quotes.
type QuoteService struct {
	profile *Profile
	corpus  ports.QuoteCorpus
	exec    *Executor
	intn    func(n int) int
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	Profile *Profile
	Corpus  ports.QuoteCorpus

	// Intn picks a random index in [0, n). Defaults to math/rand/v2.
	Intn func(n int) int
}

// NewQuoteService creates a quote service. Profile and Corpus are required.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Profile == nil {
		panic("app: Profile is required")
	}

	if cfg.Corpus == nil {
		panic("app: Corpus is required")
	}

	if cfg.Intn == nil {
		cfg.Intn = rand.IntN
	}

	return &QuoteService{
		profile: cfg.Profile,
		corpus:  cfg.Corpus,
		exec:    NewExecutor(cfg.Profile.logger),
		intn:    cfg.Intn,
	}
}

// GetDailyQuote returns today's quote, reusing the stored pick when it is for today.
func (s *QuoteService) GetDailyQuote(ctx context.Context) DailyQuote {
	return s.GetQuoteByDay(ctx, false)
}

// dayRequest is the input of the daily quote operation.
type dayRequest struct {
	today domain.DateKey
	force bool
}

// GetQuoteByDay runs the day-based selector against the stored cache.
// force recomputes the pick even when the cache is fresh.
// It never fails: when no quote can be selected the built-in default is returned.
func (s *QuoteService) GetQuoteByDay(ctx context.Context, force bool) DailyQuote {
	defer s.profile.lock()()

	req := dayRequest{today: s.profile.Today(), force: force}

	dq, err := Execute(ctx, s.exec, s.dailyOperation(), req)
	if err != nil {
		s.profile.logFor(ctx).WarnContext(ctx, "serving default quote",
			slog.String("date_key", req.today.String()),
			slog.String("error", err.Error()))

		dq = DailyQuote{Quote: domain.DefaultQuote(), DateKey: req.today, Origin: OriginFallback}
	}

	s.profile.metrics.QuoteServed(dq.Origin)

	return dq
}

func (s *QuoteService) dailyOperation() Operation[dayRequest, domain.Selection, domain.Selection, DailyQuote] {
	return Operation[dayRequest, domain.Selection, domain.Selection, DailyQuote]{
		Name: "daily_quote",
		Validate: func(_ context.Context, req dayRequest) error {
			return req.today.Validate()
		},
		Perform: func(ctx context.Context, req dayRequest) (domain.Selection, error) {
			return domain.SelectDailyQuote(&lazyCorpus{src: s.corpus}, req.today, s.loadCache(ctx), req.force)
		},
		Verify: func(_ context.Context, _ dayRequest, sel domain.Selection) (domain.Selection, error) {
			if sel.Quote.IsZero() {
				return sel, errors.New("selected quote has no text")
			}

			return sel, nil
		},
		Archive: func(ctx context.Context, req dayRequest, sel domain.Selection) error {
			if sel.FromCache {
				return nil
			}

			b := staging.New()
			if err := b.Add(
				keyspace.Stage(s.profile.store, keyspace.DailyQuote, sel.Cache.Quote),
				keyspace.Stage(s.profile.store, keyspace.DailyQuoteDate, sel.Cache.DateKey),
			); err != nil {
				return err
			}

			// The pick is still served when it cannot be stored; the next read recomputes it.
			if err := b.Commit(ctx); err != nil {
				s.profile.storageFailed(ctx, "failed to store daily quote", err)
			}

			return nil
		},
		Respond: func(ctx context.Context, req dayRequest, sel domain.Selection) (DailyQuote, error) {
			if sel.FromCache {
				return DailyQuote{Quote: sel.Quote, DateKey: sel.Cache.DateKey, Origin: OriginCache}, nil
			}

			s.profile.publish(ctx, domain.DailyQuoteChanged{Quote: sel.Quote, DateKey: req.today, Forced: req.force})

			return DailyQuote{Quote: sel.Quote, DateKey: req.today, Origin: OriginSelector}, nil
		},
	}
}

// lazyCorpus defers the snapshot until the selector actually needs the corpus.
type lazyCorpus struct {
	src  ports.QuoteCorpus
	list domain.QuoteList
	done bool
}

func (l *lazyCorpus) snapshot() domain.QuoteList {
	if !l.done {
		l.list, l.done = l.src.Snapshot(), true
	}

	return l.list
}

func (l *lazyCorpus) Len() int { return l.snapshot().Len() }

func (l *lazyCorpus) At(i int) domain.Quote { return l.snapshot().At(i) }

// loadCache reads the stored pick. A partial or malformed pair reads as no cache.
func (s *QuoteService) loadCache(ctx context.Context) *domain.DailyQuoteCache {
	day := load(ctx, s.profile, keyspace.DailyQuoteDate, "")
	if day == "" {
		return nil
	}

	q := load(ctx, s.profile, keyspace.DailyQuote, domain.Quote{})
	if q.IsZero() {
		return nil
	}

	return &domain.DailyQuoteCache{Quote: q, DateKey: day}
}

// GetRandomQuote picks uniformly from the corpus. Nothing is cached.
func (s *QuoteService) GetRandomQuote(ctx context.Context) DailyQuote {
	corpus := s.corpus.Snapshot()
	today := s.profile.Today()

	if len(corpus) == 0 {
		s.profile.metrics.QuoteServed(OriginFallback)
		return DailyQuote{Quote: domain.DefaultQuote(), DateKey: today, Origin: OriginFallback}
	}

	s.profile.metrics.QuoteServed(OriginRandom)

	q := corpus[s.intn(len(corpus))]
	s.profile.logFor(ctx).DebugContext(ctx, "picked random quote", slog.String("quote_id", q.ID))

	return DailyQuote{Quote: q, DateKey: today, Origin: OriginRandom}
}

// GetQuoteByID looks a quote up in the corpus. The built-in default quote is always found.
func (s *QuoteService) GetQuoteByID(_ context.Context, id string) (domain.Quote, error) {
	if id == "" {
		return domain.Quote{}, domain.NewValidationError("id", "is required")
	}

	for _, q := range s.corpus.Snapshot() {
		if q.ID == id {
			return q, nil
		}
	}

	if def := domain.DefaultQuote(); def.ID == id {
		return def, nil
	}

	return domain.Quote{}, domain.NewNotFoundError("quote", id)
}

// SearchQuery filters the corpus.
type SearchQuery struct {
	// Text matches case-insensitively against quote text and author.
	Text string
	// Category must equal the quote's category, ignoring case.
	Category string
	Limit    int
}

// Search returns quotes matching q in corpus order.
func (s *QuoteService) Search(_ context.Context, q SearchQuery) []domain.Quote {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	limit = min(limit, MaxSearchLimit)
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	out := []domain.Quote{}

	for _, quote := range s.corpus.Snapshot() {
		if q.Category != "" && !strings.EqualFold(quote.Category, q.Category) {
			continue
		}

		if needle != "" &&
			!strings.Contains(strings.ToLower(quote.Text), needle) &&
			!strings.Contains(strings.ToLower(quote.Author), needle) {
			continue
		}

		out = append(out, quote)
		if len(out) == limit {
			break
		}
	}

	return out
}

// Categories lists the corpus categories with their quote counts, largest first.
func (s *QuoteService) Categories(context.Context) []domain.Count {
	counts := map[string]int{}

	for _, q := range s.corpus.Snapshot() {
		if q.Category != "" {
			counts[strings.ToLower(q.Category)]++
		}
	}

	out := make([]domain.Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, domain.Count{Label: label, Count: n})
	}

	slices.SortFunc(out, func(a, b domain.Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Label, b.Label)
	})

	return out
}

// ReloadCorpus re-reads every corpus source.
func (s *QuoteService) ReloadCorpus(ctx context.Context) (int, error) {
	return s.corpus.Reload(ctx)
}

// CorpusSize returns the number of quotes currently loaded.
func (s *QuoteService) CorpusSize() int {
	return len(s.corpus.Snapshot())
}
