// Package events carries domain events between components over an in-process
// watermill pub/sub.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// Topic is the single topic every domain event is published on.
const Topic = "daily-quote.events"

// MetadataEventType is the message metadata key holding the event type.
const MetadataEventType = "event_type"

// ErrClosed is returned when publishing to or subscribing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// Envelope is a received event.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}

	return v, nil
}

// Bus implements ports.EventPublisher on a watermill GoChannel.
// Events published with no subscriber are dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
	closed atomic.Bool
}

var _ ports.EventPublisher = (*Bus)(nil)

// NewBus creates a bus whose subscribers buffer up to buffer messages.
func NewBus(buffer int64, logger *slog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: buffer},
		watermill.NewSlogLogger(logger.With(slog.String("component", "events"))),
	)

	return &Bus{pubsub: pubsub, logger: logger}
}

// Publish encodes event as JSON and publishes it on Topic.
func (b *Bus) Publish(ctx context.Context, event ports.Event) error {
	if b.closed.Load() {
		return ErrClosed
	}

	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataEventType, event.EventType())
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType(), err)
	}

	return nil
}

// Subscribe streams events until ctx is done or the bus closes.
// Messages are acknowledged as soon as they are handed to the channel.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Envelope)

	go func() {
		defer close(out)

		for msg := range messages {
			env := Envelope{
				ID:      msg.UUID,
				Type:    msg.Metadata.Get(MetadataEventType),
				Payload: json.RawMessage(msg.Payload),
			}
			msg.Ack()

			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close stops the bus and closes every subscription channel.
func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	return b.pubsub.Close()
}
