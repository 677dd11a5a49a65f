package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/anthill/accountsvc/pkg/logger"
	"github.com/anthill/accountsvc/pkg/monitoring"
	"gorm.io/gorm"
)

// AccountRepository implements domain.AccountStore against Postgres via gorm.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// create inserts a row with empty JSON info and returns the new id,
// mirroring the reference "INSERT INTO accounts (account_info) VALUES ('{}')"
// followed by reading back the generated id.
func (r *AccountRepository) create(ctx context.Context) (string, error) {
	tx := GetTransaction(ctx, r.db)
	row := accountRow{AccountInfo: []byte("{}")}
	if err := tx.Raw(
		`INSERT INTO accounts (account_info) VALUES (?) RETURNING account_id`,
		row.AccountInfo,
	).Scan(&row.AccountID).Error; err != nil {
		return "", fmt.Errorf("insert account: %w", err)
	}
	return row.AccountID, nil
}

func (r *AccountRepository) Exists(ctx context.Context, account string) (bool, error) {
	var count int64
	if err := GetTransaction(ctx, r.db).Model(&accountRow{}).
		Where("account_id = ?", account).Count(&count).Error; err != nil {
		logger.Errorf("failed to check account existence: %v", err)
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return count > 0, nil
}

func (r *AccountRepository) GetInfo(ctx context.Context, account string) (map[string]interface{}, error) {
	var row accountRow
	err := GetTransaction(ctx, r.db).Where("account_id = ?", account).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.Errorf("failed to load account info: %v", err)
		return nil, fmt.Errorf("load account info: %w", err)
	}
	var info map[string]interface{}
	if len(row.AccountInfo) == 0 {
		return map[string]interface{}{}, nil
	}
	if err := json.Unmarshal(row.AccountInfo, &info); err != nil {
		return nil, fmt.Errorf("decode account_info: %w", err)
	}
	return info, nil
}

func (r *AccountRepository) UpdateInfo(ctx context.Context, account string, patch map[string]interface{}) error {
	tx := GetTransaction(ctx, r.db)

	existing, err := r.GetInfo(ctx, account)
	if err != nil {
		return err
	}
	merged := domain.MergeInfo(existing, patch)

	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode account_info: %w", err)
	}

	if err := tx.Model(&accountRow{}).Where("account_id = ?", account).
		Update("account_info", encoded).Error; err != nil {
		logger.Errorf("failed to update account info: %v", err)
		return fmt.Errorf("update account info: %w", err)
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, account string) error {
	if err := GetTransaction(ctx, r.db).Where("account_id = ?", account).
		Delete(&accountRow{}).Error; err != nil {
		logger.Errorf("failed to delete account: %v", err)
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// AccountsDeleted cascades an external account-deletion event: every
// credential pointing at one of the listed accounts is detached, then the
// account rows themselves are removed. gamespaceOnly=true means the event
// only concerns per-gamespace data the core doesn't hold, so it is a no-op.
func (r *AccountRepository) AccountsDeleted(ctx context.Context, gamespace string, accounts []string, gamespaceOnly bool) error {
	if gamespaceOnly || len(accounts) == 0 {
		return nil
	}
	tx := GetTransaction(ctx, r.db)

	if err := tx.Where("account_id IN ?", accounts).Delete(&credentialRow{}).Error; err != nil {
		logger.Errorf("failed to cascade-detach credentials: %v", err)
		return fmt.Errorf("cascade detach credentials: %w", err)
	}
	if err := tx.Where("account_id IN ?", accounts).Delete(&accountRow{}).Error; err != nil {
		logger.Errorf("failed to cascade-delete accounts: %v", err)
		return fmt.Errorf("cascade delete accounts: %w", err)
	}
	return nil
}

var _ domain.AccountStore = (*accountStoreAdapter)(nil)

// accountStoreAdapter exposes AccountRepository's create() through the
// CreateAccount(ctx) signature domain.AccountStore declares, keeping the
// schema-aware row type out of the domain package. CreateAccount is the one
// call site instrumented with metrics.AccountCreated -- every caller (a
// fresh authorization, a merge's new-account branch, a bare credential
// lookup) shares this one underlying insert, so instrumenting it here fires
// once per account row regardless of which caller triggered it.
type accountStoreAdapter struct {
	repo    *AccountRepository
	metrics *monitoring.Metrics
}

func NewAccountStore(db *gorm.DB, metrics *monitoring.Metrics) domain.AccountStore {
	return &accountStoreAdapter{repo: NewAccountRepository(db), metrics: metrics}
}

func (a *accountStoreAdapter) CreateAccount(ctx context.Context) (string, error) {
	id, err := a.repo.create(ctx)
	if err != nil {
		return "", err
	}
	a.metrics.AccountCreated()
	return id, nil
}

func (a *accountStoreAdapter) Exists(ctx context.Context, account string) (bool, error) {
	return a.repo.Exists(ctx, account)
}

func (a *accountStoreAdapter) GetInfo(ctx context.Context, account string) (map[string]interface{}, error) {
	return a.repo.GetInfo(ctx, account)
}

func (a *accountStoreAdapter) UpdateInfo(ctx context.Context, account string, patch map[string]interface{}) error {
	return a.repo.UpdateInfo(ctx, account, patch)
}

func (a *accountStoreAdapter) Delete(ctx context.Context, account string) error {
	return a.repo.Delete(ctx, account)
}

func (a *accountStoreAdapter) AccountsDeleted(ctx context.Context, gamespace string, accounts []string, gamespaceOnly bool) error {
	return a.repo.AccountsDeleted(ctx, gamespace, accounts, gamespaceOnly)
}
