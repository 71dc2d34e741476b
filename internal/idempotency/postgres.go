package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/dbctx"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// PostgresStore persists processed_commands rows via sqlx/lib-pq. Every
// participant service owns its own processed_commands table (spec §3).
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps db. db must use the lib/pq driver.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Lookup(ctx context.Context, key string) (domain.ProcessedCommand, bool, error) {
	var pc domain.ProcessedCommand
	err := sqlx.GetContext(ctx, dbctx.Ext(ctx, s.db), &pc,
		`SELECT idempotency_key, command_id, result, processed_at FROM processed_commands WHERE idempotency_key = $1`,
		key,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProcessedCommand{}, false, nil
		}
		return domain.ProcessedCommand{}, false, fmt.Errorf("idempotency: lookup %s: %w", key, err)
	}
	return pc, true, nil
}

func (s *PostgresStore) Insert(ctx context.Context, key string, commandID uuid.UUID, result []byte) (bool, error) {
	res, err := dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`INSERT INTO processed_commands (idempotency_key, command_id, result, processed_at)
		 VALUES ($1, $2, $3, now()) ON CONFLICT (idempotency_key) DO NOTHING`,
		key, commandID, result,
	)
	if err != nil {
		return false, fmt.Errorf("idempotency: insert %s: %w", key, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("idempotency: rows affected for %s: %w", key, err)
	}
	return rows > 0, nil
}
