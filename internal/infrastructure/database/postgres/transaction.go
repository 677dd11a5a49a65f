package postgres

import (
	"context"
	"fmt"

	"github.com/anthill/accountsvc/internal/domain"
	"gorm.io/gorm"
)

type transactionKey struct{}

// TransactionManager implements domain.TransactionManager over a *gorm.DB,
// stashing the live transaction on the context so every repository call
// made during a request picks it up via GetTransaction.
type TransactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

func (m *TransactionManager) Begin(ctx context.Context) (context.Context, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ctx, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return context.WithValue(ctx, transactionKey{}, tx), nil
}

func (m *TransactionManager) Commit(ctx context.Context) error {
	tx, ok := ctx.Value(transactionKey{}).(*gorm.DB)
	if !ok {
		return fmt.Errorf("commit: no transaction on context")
	}
	return tx.Commit().Error
}

func (m *TransactionManager) Rollback(ctx context.Context) error {
	tx, ok := ctx.Value(transactionKey{}).(*gorm.DB)
	if !ok {
		return nil
	}
	return tx.Rollback().Error
}

// WithTransaction begins a transaction, runs fn with it on the context,
// rolling back on error and committing on success.
func (m *TransactionManager) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	txCtx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(txCtx); err != nil {
		if rbErr := m.Rollback(txCtx); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	return m.Commit(txCtx)
}

// GetTransaction returns the transaction stashed on ctx by TransactionManager,
// falling back to db.WithContext(ctx) for calls made outside any transaction.
func GetTransaction(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(transactionKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

var _ domain.TransactionManager = (*TransactionManager)(nil)
