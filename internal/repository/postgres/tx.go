package postgres

import (
	"context"
	"fmt"

	"github.com/cassiomorais/paygate/internal/domain/txn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the common query interface satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TxManager implements transaction management: it begins a transaction
// and hands it to fn as an explicit txn.Tx, never via context, so stores
// that must participate take it as a parameter instead of recovering it
// ambiently.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new transaction manager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithTransaction executes fn inside a database transaction, passing the
// transaction to fn explicitly. The transaction is committed if fn
// returns nil, rolled back otherwise.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx txn.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.Exec(ctx, "SET LOCAL statement_timeout = '10s'"); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("set statement_timeout: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed (%v) after error: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// dbtx resolves the query target for a store call: the transaction
// handed down explicitly by the engine, or the pool when the call sits
// outside any transaction.
func dbtx(pool *pgxpool.Pool, tx txn.Tx) DBTX {
	if tx == nil {
		return pool
	}
	return tx.(pgx.Tx)
}
