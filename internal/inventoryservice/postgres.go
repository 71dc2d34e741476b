package inventoryservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/dbctx"
)

// PostgresStore persists inventory/reservation rows via sqlx/lib-pq.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindInventory(ctx context.Context, productID uuid.UUID) (Inventory, bool, error) {
	var item Inventory
	err := sqlx.GetContext(ctx, dbctx.Ext(ctx, s.db), &item,
		`SELECT product_id, available_quantity, reserved_quantity FROM inventory WHERE product_id = $1`,
		productID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Inventory{}, false, nil
	}
	if err != nil {
		return Inventory{}, false, fmt.Errorf("inventoryservice: find inventory for product %s: %w", productID, err)
	}
	return item, true, nil
}

func (s *PostgresStore) FindReservation(ctx context.Context, orderID, productID uuid.UUID) (Reservation, bool, error) {
	var r Reservation
	err := sqlx.GetContext(ctx, dbctx.Ext(ctx, s.db), &r,
		`SELECT id, product_id, order_id, quantity, status FROM reservations WHERE order_id = $1 AND product_id = $2`,
		orderID, productID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, false, nil
	}
	if err != nil {
		return Reservation{}, false, fmt.Errorf("inventoryservice: find reservation for order %s: %w", orderID, err)
	}
	return r, true, nil
}

// Reserve decrements available/increments reserved stock and inserts
// the reservation row. Both statements run against dbctx.Ext, so they
// share the ambient transaction runtime.Runtime already opened around
// the handler call — no nested transaction is started here.
func (s *PostgresStore) Reserve(ctx context.Context, productID uuid.UUID, quantity int32, reservation Reservation) error {
	ext := dbctx.Ext(ctx, s.db)
	if _, err := ext.ExecContext(ctx,
		`UPDATE inventory
		 SET available_quantity = available_quantity - $1, reserved_quantity = reserved_quantity + $1
		 WHERE product_id = $2`,
		quantity, productID,
	); err != nil {
		return fmt.Errorf("inventoryservice: decrement available stock for product %s: %w", productID, err)
	}
	if _, err := ext.ExecContext(ctx,
		`INSERT INTO reservations (id, product_id, order_id, quantity, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		reservation.ID, reservation.ProductID, reservation.OrderID, reservation.Quantity, reservation.Status,
	); err != nil {
		return fmt.Errorf("inventoryservice: insert reservation %s: %w", reservation.ID, err)
	}
	return nil
}

// Release restores a reservation's quantity to available stock and
// marks the reservation cancelled, sharing the ambient transaction.
func (s *PostgresStore) Release(ctx context.Context, reservation Reservation) error {
	ext := dbctx.Ext(ctx, s.db)
	if _, err := ext.ExecContext(ctx,
		`UPDATE inventory
		 SET available_quantity = available_quantity + $1, reserved_quantity = reserved_quantity - $1
		 WHERE product_id = $2`,
		reservation.Quantity, reservation.ProductID,
	); err != nil {
		return fmt.Errorf("inventoryservice: restore available stock for product %s: %w", reservation.ProductID, err)
	}
	if _, err := ext.ExecContext(ctx,
		`UPDATE reservations SET status = $1 WHERE id = $2`,
		ReservationCancelled, reservation.ID,
	); err != nil {
		return fmt.Errorf("inventoryservice: cancel reservation %s: %w", reservation.ID, err)
	}
	return nil
}
