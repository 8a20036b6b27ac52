package services

import (
	"context"
	"errors"

	"github.com/upb/tenant-notes/repositories"
)

// WithTransaction executes fn within a transaction owned by txMgr.
// fn receives the transaction-bearing context; repositories must be called with it.
// Commits on success, rolls back on error or when ctx is done.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return ErrTransactionFailed.Wrap(err)
	}
	err := txMgr.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := fn(txCtx); err != nil {
			return err
		}
		// A deadline that passed mid-transaction must not commit.
		return txCtx.Err()
	})
	if err != nil {
		return classifyTxError(err)
	}
	return nil
}

// WithTransactionResult executes fn within a transaction and returns its result.
// On any error the zero value of T is returned.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := WithTransaction(ctx, txMgr, func(txCtx context.Context) error {
		r, err := fn(txCtx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// classifyTxError leaves domain errors alone and tags everything else as a
// transaction failure so handlers never see raw driver errors.
func classifyTxError(err error) error {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return ErrTransactionFailed.Wrap(err)
}
