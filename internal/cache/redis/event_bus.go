package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// streamMaxLen caps tick streams through XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// EventBus implements domain.EventBus. Listing, bid and config events go
// over Pub/Sub; tick reports are also appended to a stream so late readers
// can page through history.
type EventBus struct {
	c *Client
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{c: c}
}

// Publish sends payload to a Pub/Sub channel.
func (b *EventBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.c.Underlying().Publish(ctx, b.c.Key(channel), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. Glob
// patterns use PSUBSCRIBE. The returned channel closes with ctx.
func (b *EventBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	subscribe := b.c.Underlying().Subscribe
	if hasPattern(channel) {
		subscribe = b.c.Underlying().PSubscribe
	}
	pubsub := subscribe(ctx, b.c.Key(channel))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go relay(ctx, pubsub, out)
	return out, nil
}

// relay copies messages to out until ctx ends or the subscription drops.
func relay(ctx context.Context, pubsub *redis.PubSub, out chan<- []byte) {
	defer close(out)
	defer pubsub.Close()

	msgs := pubsub.Channel()
	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			msg = m
		}
		select {
		case out <- []byte(msg.Payload):
		case <-ctx.Done():
			return
		}
	}
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// StreamAppend adds payload to stream, trimming it to roughly streamMaxLen.
func (b *EventBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := b.c.Underlying().XAdd(ctx, &redis.XAddArgs{
		Stream: b.c.Key(stream),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: []any{"payload", payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// StreamRead pages forward through stream: it returns up to count entries
// with IDs strictly greater than lastID. "0" and "" start from the oldest
// entry.
func (b *EventBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	start := "-"
	if lastID != "" && lastID != "0" {
		start = "(" + lastID
	}
	entries, err := b.c.Underlying().XRangeN(ctx, b.c.Key(stream), start, "+", int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	messages := make([]domain.StreamMessage, 0, len(entries))
	for _, e := range entries {
		switch v := e.Values["payload"].(type) {
		case string:
			messages = append(messages, domain.StreamMessage{ID: e.ID, Payload: []byte(v)})
		case []byte:
			messages = append(messages, domain.StreamMessage{ID: e.ID, Payload: v})
		}
	}
	return messages, nil
}

var _ domain.EventBus = (*EventBus)(nil)
