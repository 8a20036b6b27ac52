package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upb/tenant-notes/repositories"
	"go.uber.org/zap"
)

type txKey struct{}

// TransactionManager runs units of work on one *sql.Tx. Repositories find the
// open transaction through the context, so a service only threads ctx.
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a TransactionManager over db
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{
		db:     db,
		logger: logger,
	}
}

// Begin opens a transaction at the server's default isolation (READ COMMITTED).
// The quota count and insert are ordered by the tenant row lock, not by isolation.
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: sqlTx, started: time.Now(), logger: tm.logger}, nil
}

// InTransaction runs fn with a context carrying the transaction and commits
// when fn returns nil.
//
// If ctx already carries a transaction, fn joins it: nothing is begun or
// committed here, and locks taken inside fn (LockForQuota's FOR UPDATE) stay
// held until the outermost call finishes.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	t, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	tx := t.(*Tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			tm.logger.Error("rollback failed",
				zap.Error(rbErr),
				zap.NamedError("cause", err))
		}
		return err
	}
	return tx.Commit()
}

// Tx is an open postgres transaction
type Tx struct {
	tx      *sql.Tx
	started time.Time
	logger  *zap.Logger
}

// Commit commits the transaction. A cancelled context surfaces here as
// sql.ErrTxDone, because database/sql rolls back on cancellation.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	t.logger.Debug("tx committed", zap.Duration("held", time.Since(t.started)))
	return nil
}

// Rollback aborts the transaction. Rolling back a finished one is a no-op.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	switch {
	case errors.Is(err, sql.ErrTxDone):
		return nil
	case err != nil:
		return fmt.Errorf("rollback transaction: %w", err)
	}
	t.logger.Debug("tx rolled back", zap.Duration("held", time.Since(t.started)))
	return nil
}

func txFromContext(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// conn returns the transaction carried by ctx, or the pool when there is none.
// Statements that must see or hold locks (LockForQuota, the quota count, the
// note insert) rely on being called with the InTransaction context.
func conn(ctx context.Context, db *DB) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx.tx
	}
	return db.DB
}
