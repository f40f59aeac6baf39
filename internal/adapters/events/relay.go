package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// ErrFeedClosed is returned when the change feed ends while the relay runs.
var ErrFeedClosed = errors.New("change feed closed")

// ChangeFeed broadcasts key changes between processes sharing a backend.
// storage.RedisStore implements it with Redis pub/sub.
type ChangeFeed interface {
	PublishChange(ctx context.Context, payload []byte) error
	SubscribeChanges(ctx context.Context) (<-chan []byte, error)
}

// ChangeRelay connects the local bus to a ChangeFeed. Key changes made by this
// process go out on the feed; changes from other processes are republished on
// the bus, where a CacheInvalidator drops the stale entries.
type ChangeRelay struct {
	bus    *Bus
	feed   ChangeFeed
	origin string
}

// NewChangeRelay creates a relay for the store stamping its changes with origin.
func NewChangeRelay(bus *Bus, feed ChangeFeed, origin string) *ChangeRelay {
	return &ChangeRelay{bus: bus, feed: feed, origin: origin}
}

// Serve relays until ctx is done. A closed bus stops the relay for good; a lost
// feed returns an error so the supervisor reconnects.
func (r *ChangeRelay) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	local, err := r.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	remote, err := r.feed.SubscribeChanges(ctx)
	if err != nil {
		return err
	}

	logger := logging.FromContext(ctx)

	for {
		select {
		case env, ok := <-local:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				return suture.ErrDoNotRestart
			}

			r.outbound(ctx, logger, env)
		case raw, ok := <-remote:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				return ErrFeedClosed
			}

			r.inbound(ctx, logger, raw)
		}
	}
}

func (r *ChangeRelay) outbound(ctx context.Context, logger *slog.Logger, env Envelope) {
	if env.Type != domain.EventKeyChanged {
		return
	}

	change, err := Decode[domain.KeyChanged](env)
	if err != nil || change.Origin != r.origin {
		return
	}

	if err := r.feed.PublishChange(ctx, env.Payload); err != nil {
		logger.WarnContext(ctx, "failed to broadcast key change",
			slog.String("key", change.Key), slog.String("error", err.Error()))
	}
}

func (r *ChangeRelay) inbound(ctx context.Context, logger *slog.Logger, raw []byte) {
	var change domain.KeyChanged
	if err := json.Unmarshal(raw, &change); err != nil {
		logger.WarnContext(ctx, "skipping malformed broadcast change", slog.String("error", err.Error()))
		return
	}

	if change.Origin == r.origin {
		return
	}

	if err := r.bus.Publish(ctx, change); err != nil {
		logger.WarnContext(ctx, "failed to republish key change",
			slog.String("key", change.Key), slog.String("error", err.Error()))
	}
}

// String names the service in supervisor logs.
func (r *ChangeRelay) String() string { return "change-relay" }
