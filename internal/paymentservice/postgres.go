package paymentservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/dbctx"
)

// PostgresStore persists payment rows via sqlx/lib-pq.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type paymentRow struct {
	ID            uuid.UUID `db:"id"`
	OrderID       uuid.UUID `db:"order_id"`
	Amount        string    `db:"amount"`
	PaymentMethod string    `db:"payment_method"`
	Status        string    `db:"status"`
}

func (s *PostgresStore) FindByOrderID(ctx context.Context, orderID uuid.UUID) (Payment, bool, error) {
	var row paymentRow
	err := sqlx.GetContext(ctx, dbctx.Ext(ctx, s.db), &row,
		`SELECT id, order_id, amount, payment_method, status FROM payments WHERE order_id = $1`,
		orderID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Payment{}, false, nil
	}
	if err != nil {
		return Payment{}, false, fmt.Errorf("paymentservice: find payment for order %s: %w", orderID, err)
	}
	var amount float64
	if _, err := fmt.Sscanf(row.Amount, "%f", &amount); err != nil {
		return Payment{}, false, fmt.Errorf("paymentservice: parse amount %q: %w", row.Amount, err)
	}
	return Payment{
		ID:            row.ID,
		OrderID:       row.OrderID,
		Amount:        amount,
		PaymentMethod: row.PaymentMethod,
		Status:        row.Status,
	}, true, nil
}

func (s *PostgresStore) Insert(ctx context.Context, payment Payment) error {
	_, err := dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`INSERT INTO payments (id, order_id, amount, payment_method, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		payment.ID, payment.OrderID, fmt.Sprintf("%.2f", payment.Amount), payment.PaymentMethod, payment.Status,
	)
	if err != nil {
		return fmt.Errorf("paymentservice: insert payment %s: %w", payment.ID, err)
	}
	return nil
}

func (s *PostgresStore) RefundByOrderID(ctx context.Context, orderID uuid.UUID) error {
	_, err := dbctx.Ext(ctx, s.db).ExecContext(ctx,
		`UPDATE payments SET status = $1 WHERE order_id = $2`,
		StatusRefunded, orderID,
	)
	if err != nil {
		return fmt.Errorf("paymentservice: refund payment for order %s: %w", orderID, err)
	}
	return nil
}
