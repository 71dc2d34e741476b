package orderservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/dbctx"
)

// PostgresStore persists orders rows via sqlx/lib-pq.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, order Order) error {
	_, err := dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, product_id, quantity, total_amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.CustomerID, order.ProductID, order.Quantity,
		fmt.Sprintf("%.2f", order.TotalAmount), order.Status,
	)
	if err != nil {
		return fmt.Errorf("orderservice: insert %s: %w", order.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	_, err := dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2`,
		status, orderID,
	)
	if err != nil {
		return fmt.Errorf("orderservice: update status of %s: %w", orderID, err)
	}
	return nil
}
