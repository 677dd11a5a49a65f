package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/anthill/accountsvc/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository implements domain.CredentialStore against Postgres.
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) domain.CredentialStore {
	return &CredentialRepository{db: db}
}

// Attach is an idempotent insert: ON CONFLICT DO NOTHING so a retried or
// concurrent attach of the same pair is a no-op rather than an error.
func (r *CredentialRepository) Attach(ctx context.Context, credential domain.Credential, account string) error {
	row := credentialRow{Credential: credential.String(), AccountID: account}
	err := GetTransaction(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "credential"}, {Name: "account_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		logger.Errorf("failed to attach credential %s to account %s: %v", credential, account, err)
		return fmt.Errorf("attach credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Detach(ctx context.Context, credential domain.Credential, account string) error {
	err := GetTransaction(ctx, r.db).
		Where("credential = ? AND account_id = ?", credential.String(), account).
		Delete(&credentialRow{}).Error
	if err != nil {
		logger.Errorf("failed to detach credential %s from account %s: %v", credential, account, err)
		return fmt.Errorf("detach credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) ListAccounts(ctx context.Context, credential domain.Credential) ([]string, error) {
	var rows []credentialRow
	if err := GetTransaction(ctx, r.db).
		Where("credential = ?", credential.String()).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list accounts for credential: %w", err)
	}
	accounts := make([]string, len(rows))
	for i, row := range rows {
		accounts[i] = row.AccountID
	}
	return accounts, nil
}

func (r *CredentialRepository) ListAccountCredentials(ctx context.Context, account string, typeFilter map[string]bool) ([]domain.Credential, error) {
	var rows []credentialRow
	if err := GetTransaction(ctx, r.db).
		Where("account_id = ?", account).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list account credentials: %w", err)
	}

	out := make([]domain.Credential, 0, len(rows))
	for _, row := range rows {
		cred, err := domain.ParseCredential(row.Credential)
		if err != nil {
			return nil, fmt.Errorf("stored credential %q is malformed: %w", row.Credential, err)
		}
		if typeFilter != nil && !typeFilter[cred.Type] {
			continue
		}
		out = append(out, cred)
	}
	return out, nil
}

func (r *CredentialRepository) GetAccount(ctx context.Context, credential domain.Credential) (string, error) {
	var row credentialRow
	err := GetTransaction(ctx, r.db).
		Where("credential = ?", credential.String()).
		Order("created_at ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrCredentialNotFound
	}
	if err != nil {
		logger.Errorf("failed to load credential %s: %v", credential, err)
		return "", fmt.Errorf("load credential: %w", err)
	}
	return row.AccountID, nil
}
