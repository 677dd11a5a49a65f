package postgres

import "time"

// accountRow is the gorm model for the accounts table. AccountInfo is stored
// as a JSON blob and deep-merged in Go before being written back, rather
// than relying on a JSON-in-SQL merge operator, to keep the merge semantics
// portable across drivers.
type accountRow struct {
	AccountID   string `gorm:"column:account_id;primaryKey"`
	AccountInfo []byte `gorm:"column:account_info;type:jsonb"`
}

func (accountRow) TableName() string { return "accounts" }

// credentialRow is the gorm model for the many-to-many credential<->account
// link table. The store intentionally allows more than one live row per
// credential so AccountService can observe and resolve a conflict instead of
// a unique constraint silently rejecting the second link.
type credentialRow struct {
	Credential string    `gorm:"column:credential;primaryKey"`
	AccountID  string    `gorm:"column:account_id;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (credentialRow) TableName() string { return "account_credentials" }
