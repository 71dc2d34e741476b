package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/dbctx"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// PostgresStore persists outbox_events rows via sqlx/lib-pq.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LoadUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	var events []domain.OutboxEvent
	err := sqlx.SelectContext(ctx, dbctx.Ext(ctx, s.db), &events,
		`SELECT id, aggregate_id, event_type, payload, processed, created_at
		 FROM outbox_events WHERE processed = false
		 ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("outbox: load unpublished: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	_, err := dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`UPDATE outbox_events SET processed = true WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("outbox: mark published: %w", err)
	}
	return nil
}

// Insert writes a new outbox row in the same transaction as the
// domain mutation the caller is making, via dbctx. Participant
// handlers call this, not LoadUnpublished/MarkPublished.
func (s *PostgresStore) Insert(ctx context.Context, aggregateID uuid.UUID, eventType string, payload []byte) error {
	_, err := dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, processed, created_at)
		 VALUES ($1, $2, $3, $4, false, now())`,
		uuid.New(), aggregateID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("outbox: insert %s: %w", eventType, err)
	}
	return nil
}
