// Package outbox polls a service's outbox table and publishes rows to
// the bus, implementing the transactional-outbox pattern: a handler
// writes its domain change and the outbox row in one transaction, and
// this publisher is what moves those rows onto the bus. (Command
// replies are published by internal/runtime, not through the outbox.)
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/bus"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// pollInterval and batchSize match spec §4.D's reference tick and
// batch bound.
const (
	pollInterval = 5 * time.Second
	batchSize    = 100
)

// Store is the persistence side of the outbox: load unpublished rows
// and mark published the rows of a batch that were sent successfully.
type Store interface {
	LoadUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher ticks on pollInterval, loads a batch of unpublished rows,
// and publishes each to the topic its event_type maps to.
type Publisher struct {
	store    Store
	producer bus.Producer
	log      zerolog.Logger
}

// New builds a Publisher over store, publishing through producer.
func New(store Store, producer bus.Producer, log zerolog.Logger) *Publisher {
	return &Publisher{store: store, producer: producer, log: log}
}

// Run blocks, polling until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Publisher) tick(ctx context.Context) {
	events, err := p.store.LoadUnpublished(ctx, batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("outbox: load unpublished failed")
		return
	}
	if len(events) == 0 {
		return
	}

	var published []uuid.UUID
	for _, ev := range events {
		topic := bus.EventTopic(ev.EventType)
		if err := p.producer.Publish(ctx, topic, ev.AggregateID.String(), ev.Payload); err != nil {
			p.log.Error().Err(err).Str("event_type", ev.EventType).Str("topic", topic).
				Msg("outbox: publish failed, will retry next tick")
			continue
		}
		published = append(published, ev.ID)
	}

	if len(published) == 0 {
		return
	}
	if err := p.store.MarkPublished(ctx, published); err != nil {
		p.log.Error().Err(err).Msg("outbox: mark published failed")
	}
}
