// Package bustest provides an in-memory stand-in for internal/bus,
// sufficient to drive internal/runtime, internal/outbox and
// internal/orchestrator through a full saga without a live broker.
package bustest

import (
	"context"
	"sync"
)

// Message is one published record, captured for assertions.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// Bus is a single-process fan-out: Publish on a topic delivers
// synchronously, in call order, to every handler subscribed to that
// topic via Subscribe — mirroring a single-partition Kafka topic
// consumed by one group member, which is exactly the ordering
// guarantee the saga depends on.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]handlerEntry
	Sent     []Message
}

type handlerEntry struct {
	group  string
	handle func(ctx context.Context, topic string, key, value []byte) error
}

// New returns an empty fake bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]handlerEntry)}
}

// Publish implements bus.Producer. It records the message and then
// invokes every subscriber of topic in registration order.
func (b *Bus) Publish(ctx context.Context, topic, key string, value []byte) error {
	b.mu.Lock()
	b.Sent = append(b.Sent, Message{Topic: topic, Key: key, Value: value})
	entries := append([]handlerEntry(nil), b.handlers[topic]...)
	b.mu.Unlock()

	for _, e := range entries {
		if err := e.handle(ctx, topic, []byte(key), value); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op, satisfying bus.Producer.
func (b *Bus) Close() error { return nil }

// Subscribe registers handle to run, in-line, on every future Publish
// to topic. group is accepted to mirror bus.Client.Consume's signature
// but has no effect: this fake runs every handler for every message,
// since tests want deterministic single-consumer delivery.
func (b *Bus) Subscribe(topic, group string, handle func(ctx context.Context, topic string, key, value []byte) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handlerEntry{group: group, handle: handle})
}

// Consume implements bus.Consumer: it subscribes handle to every topic
// in topics, then blocks until ctx is cancelled, exactly like
// bus.Client.Consume blocks around sarama's ConsumerGroup.Consume.
func (b *Bus) Consume(ctx context.Context, groupID string, topics []string, handle func(ctx context.Context, topic string, key, value []byte) error) error {
	for _, t := range topics {
		b.Subscribe(t, groupID, handle)
	}
	<-ctx.Done()
	return nil
}

// MessagesOn returns the messages published to topic, in order.
func (b *Bus) MessagesOn(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.Sent {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
