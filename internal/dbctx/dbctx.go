// Package dbctx stashes an in-flight *sqlx.Tx in a context.Context so
// repository implementations can participate in an enclosing
// transaction without their interfaces ever mentioning *sql.Tx.
package dbctx

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithTx returns a context carrying tx, so calls made through Ext(ctx,
// db) run inside it instead of against db directly.
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Ext returns the transaction stashed in ctx, if any, or db itself.
// Repository code calls this once per query: `dbctx.Ext(ctx,
// r.db).ExecContext(...)` behaves identically whether or not the
// caller opened a transaction.
func Ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// RunInTx begins a transaction on db, stashes it in ctx, runs fn, and
// commits on success or rolls back on error (including a panic, which
// it re-raises after rolling back).
func RunInTx(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
