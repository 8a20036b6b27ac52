package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/repositories"
	"go.uber.org/zap"
)

type transactionContextKey struct{}

// op is a deferred write. check is re-run at commit under the write lock.
type op struct {
	check func() error
	apply func()
}

// TransactionManager implements repositories.TransactionManager for the store
type TransactionManager struct {
	store *Store
}

// Begin starts a new transaction
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Transaction{store: tm.store}, nil
}

// InTransaction executes fn within a transaction. Writes become visible at
// commit; tenant locks taken by LockForQuota are released at commit or rollback.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	t, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	tx := t.(*Transaction)
	txCtx := context.WithValue(ctx, transactionContextKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txCtx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			tm.store.logger.Error("failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err),
			)
		}
		return err
	}

	return tx.Commit()
}

// Transaction buffers writes until commit
type Transaction struct {
	store *Store

	mu   sync.Mutex
	ops  []op
	held []uuid.UUID
	done bool
}

// Commit applies buffered writes atomically. If any re-check fails nothing is applied.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	defer t.releaseLocked()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, o := range t.ops {
		if err := o.check(); err != nil {
			return err
		}
	}
	for _, o := range t.ops {
		o.apply()
	}
	return nil
}

// Rollback discards buffered writes. Rolling back a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.ops = nil
	t.releaseLocked()
	return nil
}

func (t *Transaction) enqueue(o op) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return sql.ErrTxDone
	}
	t.ops = append(t.ops, o)
	return nil
}

// lockTenant takes the tenant lock for the lifetime of the transaction.
// Re-locking a tenant already held by this transaction is a no-op.
func (t *Transaction) lockTenant(ctx context.Context, id uuid.UUID) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return sql.ErrTxDone
	}
	for _, h := range t.held {
		if h == id {
			t.mu.Unlock()
			return nil
		}
	}
	t.mu.Unlock()

	if err := t.store.acquireTenant(ctx, id); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		t.store.releaseTenant(id)
		return sql.ErrTxDone
	}
	t.held = append(t.held, id)
	return nil
}

func (t *Transaction) releaseLocked() {
	for _, id := range t.held {
		t.store.releaseTenant(id)
	}
	t.held = nil
}

func txFromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(transactionContextKey{}).(*Transaction)
	return tx, ok
}

var errNoTransaction = errors.New("memory: LockForQuota requires a transaction")
