package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// Manager merges sources into one reloadable corpus.
type Manager struct {
	sources   []ports.CorpusSource
	snapshot  atomic.Pointer[domain.QuoteList]
	reloading atomic.Bool
	onReload  func(size int, took time.Duration)
}

var _ ports.QuoteCorpus = (*Manager)(nil)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithReloadHook is called after every successful reload.
func WithReloadHook(fn func(size int, took time.Duration)) ManagerOption {
	return func(m *Manager) { m.onReload = fn }
}

// NewManager creates a manager with an empty snapshot. Call Reload to populate it.
func NewManager(sources []ports.CorpusSource, opts ...ManagerOption) *Manager {
	m := &Manager{sources: sources, onReload: func(int, time.Duration) {}}
	m.snapshot.Store(&domain.QuoteList{})

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Snapshot returns the current list. Callers must not modify it.
func (m *Manager) Snapshot() domain.QuoteList {
	return *m.snapshot.Load()
}

// Name identifies the corpus in readiness checks.
func (m *Manager) Name() string { return "corpus" }

// Check fails while the snapshot holds no quotes.
func (m *Manager) Check(context.Context) error {
	if len(m.Snapshot()) == 0 {
		return domain.NewUnavailableError("corpus", "no quotes loaded")
	}

	return nil
}

// Optional reports true: with an empty corpus the daily quote falls back to the built-in quote.
func (m *Manager) Optional() bool { return true }

// Sources returns the configured sources.
func (m *Manager) Sources() []ports.CorpusSource {
	return m.sources
}

// Reload loads every source concurrently and swaps in the merged result.
// A failing source is skipped. If every source fails the previous snapshot is kept.
// Concurrent reloads are rejected with a ConflictError.
func (m *Manager) Reload(ctx context.Context) (int, error) {
	if !m.reloading.CompareAndSwap(false, true) {
		return 0, domain.NewConflictError("corpus", "reload already in progress")
	}
	defer m.reloading.Store(false)

	start := time.Now()
	logger := logging.FromContext(ctx)

	loaded := make([][]domain.Quote, len(m.sources))
	failures := make([]error, len(m.sources))

	var g errgroup.Group
	for i, src := range m.sources {
		g.Go(func() error {
			quotes, err := src.LoadQuotes(ctx)
			if err != nil {
				failures[i] = err
				logger.WarnContext(ctx, "corpus source failed",
					slog.String("source", src.Name()),
					slog.String("error", err.Error()))

				return nil
			}

			loaded[i] = quotes
			logger.DebugContext(ctx, "corpus source loaded",
				slog.String("source", src.Name()),
				slog.Int("quotes", len(quotes)))

			return nil
		})
	}
	_ = g.Wait()

	if len(m.sources) > 0 && allFailed(failures) {
		return len(m.Snapshot()), domain.NewUnavailableError("corpus",
			fmt.Sprintf("all %d sources failed", len(m.sources)))
	}

	merged := Merge(loaded...)
	m.snapshot.Store(&merged)

	took := time.Since(start)
	m.onReload(len(merged), took)
	logger.InfoContext(ctx, "corpus loaded",
		slog.Int("quotes", len(merged)),
		slog.Int("sources", len(m.sources)),
		slog.Duration("took", took))

	return len(merged), nil
}

func allFailed(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			return false
		}
	}

	return true
}

// Merge concatenates lists in order, dropping blank quotes and repeats.
// A quote with an id repeats an earlier one only when it shares the id. A quote
// without one repeats an earlier quote with the same normalized text and author,
// and otherwise gets an id derived from its content.
func Merge(lists ...[]domain.Quote) domain.QuoteList {
	seen := make(map[string]struct{})
	out := domain.QuoteList{}

	for _, list := range lists {
		for _, q := range list {
			q.Text = strings.TrimSpace(q.Text)
			q.Author = strings.TrimSpace(q.Author)

			if q.Text == "" {
				continue
			}

			content := "text:" + domain.NormalizeText(q.Text) + "|" + domain.NormalizeText(q.Author)

			if q.ID == "" {
				if _, dup := seen[content]; dup {
					continue
				}

				q.ID = ContentID(q)
			}

			if _, dup := seen["id:"+q.ID]; dup {
				continue
			}

			seen[content] = struct{}{}
			seen["id:"+q.ID] = struct{}{}
			out = append(out, q)
		}
	}

	return out
}

// ContentID derives a stable id from a quote's normalized text and author.
func ContentID(q domain.Quote) string {
	return fmt.Sprintf("c%08x", domain.StableHash(domain.NormalizeText(q.Text)+"|"+domain.NormalizeText(q.Author)))
}
