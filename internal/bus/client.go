// Package bus wraps Kafka (via sarama) behind two narrow interfaces,
// Producer and Consumer, plus the Handler callback type, so
// internal/runtime, internal/outbox and
// internal/orchestrator never import sarama directly.
package bus

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// Producer publishes a message keyed for partition-ordered delivery.
type Producer interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// Handler processes one message and returns an error to block the
// offset commit, or nil to let the consumer mark and commit it.
type Handler func(ctx context.Context, topic string, key, value []byte) error

// Consumer runs handle against every message on topics under groupID
// until ctx is cancelled. Implemented by *Client (sarama) and by
// bustest.Bus (in-memory) for tests.
type Consumer interface {
	Consume(ctx context.Context, groupID string, topics []string, handle Handler) error
}

// Client is the sarama-backed implementation of Producer plus a
// consumer-group runner built around Handler.
type Client struct {
	brokers []string
	log     zerolog.Logger
	prod    sarama.SyncProducer
}

// NewClient dials a sync producer against brokers. The consumer side is
// created lazily per call to Consume, since each consumer group needs
// its own sarama.Config tuned for that group.
func NewClient(brokers []string, log zerolog.Logger) (*Client, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Timeout = producerTimeout

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("bus: new producer: %w", err)
	}
	return &Client{brokers: brokers, log: log, prod: prod}, nil
}

// Publish sends value to topic, keyed for partition affinity. Per spec
// §4.D/§6, the key is the saga_id or aggregate_id so every message
// about the same saga or aggregate lands on one partition and is
// consumed in send order.
func (c *Client) Publish(ctx context.Context, topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	_, _, err := c.prod.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("bus: publish to %s: %w", topic, err)
	}
	return nil
}

// Close releases the producer's connections.
func (c *Client) Close() error {
	return c.prod.Close()
}

// Consume runs a consumer group against topics until ctx is cancelled,
// dispatching every message to handle. It blocks; call it from its own
// goroutine. A handler error leaves the message unmarked so a rebalance
// or restart redelivers it; a nil return marks and commits.
func (c *Client) Consume(ctx context.Context, groupID string, topics []string, handle Handler) error {
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.AutoCommit.Enable = false

	group, err := sarama.NewConsumerGroup(c.brokers, groupID, cfg)
	if err != nil {
		return fmt.Errorf("bus: new consumer group %s: %w", groupID, err)
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			c.log.Error().Err(err).Str("group", groupID).Msg("consumer group error")
		}
	}()

	h := &groupHandler{handle: handle, log: c.log}
	for {
		if err := group.Consume(ctx, topics, h); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Str("group", groupID).Msg("consumer group session ended")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

type groupHandler struct {
	handle Handler
	log    zerolog.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			err := h.handle(session.Context(), msg.Topic, msg.Key, msg.Value)
			if err != nil {
				h.log.Error().Err(err).Str("topic", msg.Topic).Int64("offset", msg.Offset).
					Msg("message handler failed, leaving offset uncommitted")
				// End the claim without marking: marking a later message
				// would commit past this one. Consume then starts a new
				// session from the last committed offset.
				return err
			}
			session.MarkMessage(msg, "")
			session.Commit()
		case <-session.Context().Done():
			return nil
		}
	}
}
