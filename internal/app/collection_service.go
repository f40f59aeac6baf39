package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/daily-quote/internal/app/keyspace"
	"github.com/jsamuelsen/daily-quote/internal/app/staging"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// QuoteFinder resolves quote ids.
type QuoteFinder interface {
	GetQuoteByID(ctx context.Context, id string) (domain.Quote, error)
}

// CollectionResult reports the outcome of adding to or removing from a collection.
type CollectionResult struct {
	Collection domain.CollectionName `json:"collection"`
	Quote      domain.Quote          `json:"quote"`
	Changed    bool                  `json:"changed"`
	Size       int                   `json:"size"`
}

// CollectionService manages the saved and liked lists.
type CollectionService struct {
	profile *Profile
	quotes  QuoteFinder
	policy  domain.StreakPolicy
}

// CollectionServiceConfig contains configuration for the collection service.
type CollectionServiceConfig struct {
	Profile *Profile
	Quotes  QuoteFinder
	// Policy is applied to the save activity recorded with every new saved quote.
	Policy domain.StreakPolicy
}

// NewCollectionService creates a collection service. Profile and Quotes are required.
func NewCollectionService(cfg CollectionServiceConfig) *CollectionService {
	if cfg.Profile == nil {
		panic("app: Profile is required")
	}

	if cfg.Quotes == nil {
		panic("app: Quotes is required")
	}

	return &CollectionService{profile: cfg.Profile, quotes: cfg.Quotes, policy: cfg.Policy}
}

// Save adds the quote to the saved list and records a save activity.
// Saving a quote that is already saved changes nothing.
func (s *CollectionService) Save(ctx context.Context, quoteID string) (CollectionResult, error) {
	return s.add(ctx, domain.CollectionSaved, quoteID)
}

// Unsave removes the quote from the saved list.
func (s *CollectionService) Unsave(ctx context.Context, quoteID string) (CollectionResult, error) {
	return s.remove(ctx, domain.CollectionSaved, quoteID)
}

// Like adds the quote to the liked list.
func (s *CollectionService) Like(ctx context.Context, quoteID string) (CollectionResult, error) {
	return s.add(ctx, domain.CollectionLiked, quoteID)
}

// Unlike removes the quote from the liked list.
func (s *CollectionService) Unlike(ctx context.Context, quoteID string) (CollectionResult, error) {
	return s.remove(ctx, domain.CollectionLiked, quoteID)
}

// List returns a collection in insertion order.
func (s *CollectionService) List(ctx context.Context, name domain.CollectionName) domain.Collection {
	return load(ctx, s.profile, keyspace.CollectionKey(name), domain.Collection{})
}

func (s *CollectionService) add(ctx context.Context, name domain.CollectionName, quoteID string) (CollectionResult, error) {
	q, err := s.quotes.GetQuoteByID(ctx, quoteID)
	if err != nil {
		return CollectionResult{}, err
	}

	defer s.profile.lock()()

	key := keyspace.CollectionKey(name)
	b := staging.New()

	current, err := staging.Fetch(ctx, b, key.Name(), func(ctx context.Context) (domain.Collection, error) {
		return load(ctx, s.profile, key, domain.Collection{}), nil
	})
	if err != nil {
		return CollectionResult{}, err
	}

	next, changed := current.Add(q, s.profile.Now())
	if !changed {
		return CollectionResult{Collection: name, Quote: q, Size: len(current)}, nil
	}

	if err := b.Add(keyspace.Stage(s.profile.store, key, next)); err != nil {
		return CollectionResult{}, err
	}

	var rec domain.StreakRecord
	if name == domain.CollectionSaved {
		if rec, err = stageActivity(ctx, s.profile, s.policy, b, domain.ActivitySave); err != nil {
			return CollectionResult{}, err
		}
	}

	if err := b.Commit(ctx); err != nil {
		s.profile.storageFailed(ctx, "failed to store collection", err)
		return CollectionResult{}, err
	}

	if name == domain.CollectionSaved {
		s.profile.metrics.ActivityRecorded(domain.ActivitySave)
		s.profile.publish(ctx, domain.StreakUpdated{Kind: domain.ActivitySave, Record: rec})
	}

	return s.changed(ctx, name, q, true, len(next)), nil
}

func (s *CollectionService) remove(ctx context.Context, name domain.CollectionName, quoteID string) (CollectionResult, error) {
	if quoteID == "" {
		return CollectionResult{}, domain.NewValidationError("quoteId", "is required")
	}

	defer s.profile.lock()()

	key := keyspace.CollectionKey(name)
	current := load(ctx, s.profile, key, domain.Collection{})

	entry, ok := current.FindByID(quoteID)
	if !ok {
		return CollectionResult{}, domain.NewNotFoundError(string(name)+" quote", quoteID)
	}

	next, _ := current.Remove(entry.Quote)

	if err := keyspace.Set(ctx, s.profile.store, key, next); err != nil {
		s.profile.storageFailed(ctx, "failed to store collection", err)
		return CollectionResult{}, err
	}

	return s.changed(ctx, name, entry.Quote, false, len(next)), nil
}

func (s *CollectionService) changed(ctx context.Context, name domain.CollectionName, q domain.Quote, added bool, size int) CollectionResult {
	s.profile.metrics.CollectionChanged(name, added)
	s.profile.publish(ctx, domain.CollectionChanged{Collection: name, Quote: q, Added: added, Size: size})
	s.profile.logFor(ctx).InfoContext(ctx, "collection changed",
		slog.String("collection", string(name)),
		slog.String("quote_id", q.ID),
		slog.Bool("added", added),
		slog.Int("size", size))

	return CollectionResult{Collection: name, Quote: q, Changed: true, Size: size}
}
