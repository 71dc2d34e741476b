package sagastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/dbctx"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
)

// PostgresStore persists saga_transactions rows. steps and context are
// stored as jsonb, status as its variant-name string (see
// domain.SagaStatus's defensive UnmarshalJSON for the read side of
// that contract).
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// row mirrors the saga_transactions table shape for sqlx scanning.
type row struct {
	ID          uuid.UUID `db:"id"`
	Steps       []byte    `db:"steps"`
	CurrentStep int       `db:"current_step"`
	Status      string    `db:"status"`
	Context     []byte    `db:"context"`
	CreatedAt   sql.NullTime `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
}

func (r row) toDomain() (*domain.SagaTransaction, error) {
	var steps []domain.SagaStep
	if err := json.Unmarshal(r.Steps, &steps); err != nil {
		return nil, fmt.Errorf("sagastore: decode steps: %w", err)
	}
	var sagaCtx map[string]any
	if err := json.Unmarshal(r.Context, &sagaCtx); err != nil {
		return nil, fmt.Errorf("sagastore: decode context: %w", err)
	}

	var status domain.SagaStatus
	statusJSON, _ := json.Marshal(r.Status)
	if err := json.Unmarshal(statusJSON, &status); err != nil {
		return nil, fmt.Errorf("sagastore: decode status: %w", err)
	}

	return &domain.SagaTransaction{
		ID:          r.ID,
		Steps:       steps,
		CurrentStep: r.CurrentStep,
		Status:      status,
		Context:     sagaCtx,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}, nil
}

func fromDomain(s *domain.SagaTransaction) (row, error) {
	steps, err := json.Marshal(s.Steps)
	if err != nil {
		return row{}, fmt.Errorf("sagastore: encode steps: %w", err)
	}
	sagaCtx, err := json.Marshal(s.Context)
	if err != nil {
		return row{}, fmt.Errorf("sagastore: encode context: %w", err)
	}
	return row{
		ID:          s.ID,
		Steps:       steps,
		CurrentStep: s.CurrentStep,
		Status:      string(s.Status),
		Context:     sagaCtx,
		CreatedAt:   sql.NullTime{Time: s.CreatedAt, Valid: true},
		UpdatedAt:   sql.NullTime{Time: s.UpdatedAt, Valid: true},
	}, nil
}

func (s *PostgresStore) Create(ctx context.Context, saga *domain.SagaTransaction) error {
	r, err := fromDomain(saga)
	if err != nil {
		return err
	}
	_, err = dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`INSERT INTO saga_transactions (id, steps, current_step, status, context, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Steps, r.CurrentStep, r.Status, r.Context, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sagastore: create %s: %w", saga.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*domain.SagaTransaction, error) {
	var r row
	err := sqlx.GetContext(ctx, dbctx.Ext(ctx, s.db), &r,
		`SELECT id, steps, current_step, status, context, created_at, updated_at
		 FROM saga_transactions WHERE id = $1`,
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sagastore: get %s: %w", id, err)
	}
	return r.toDomain()
}

func (s *PostgresStore) Update(ctx context.Context, saga *domain.SagaTransaction) error {
	r, err := fromDomain(saga)
	if err != nil {
		return err
	}
	res, err := dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`UPDATE saga_transactions SET status = $1, current_step = $2, context = $3, updated_at = $4
		 WHERE id = $5`,
		r.Status, r.CurrentStep, r.Context, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("sagastore: update %s: %w", saga.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sagastore: rows affected for %s: %w", saga.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
