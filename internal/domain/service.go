package domain

import (
	"context"
	"time"
)

// AccountServiceDeps is the full dependency set AccountService needs. It is
// injected as a configuration record at construction time; there is no
// ambient process-wide state.
type AccountServiceDeps struct {
	Credentials     CredentialStore
	Accounts        AccountStore
	Tokens          TokenStore
	Signer          TokenSigner
	Gamespaces      GamespaceCatalog
	Scopes          ScopeResolver
	Authenticators  AuthenticatorRegistry
	Social          SocialBridge
	Transactions    TransactionManager
	Locker          Locker
	ResolveTokenTTL time.Duration
	AccessTokenTTL  time.Duration
}

// Locker serializes concurrent authorizations of the same credential so two
// racing logins of a previously-unknown credential cannot both create a
// fresh account. Satisfied structurally by pkg/cache's RedisDistributedLock.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) error
	Unlock(ctx context.Context, key string) error
}

// AuthResponse is the JSON shape returned to the client on success.
type AuthResponse struct {
	Token      string   `json:"token"`
	Account    string   `json:"account"`
	Credential string   `json:"credential"`
	Scopes     []string `json:"scopes"`
}

// AccountService orchestrates authorize / attach_account / resolve_conflict,
// implementing the credential/account merge state machine described by the
// external request surface.
type AccountService interface {
	Authorize(ctx context.Context, args RequestArgs, env RequestEnv) (AuthResponse, error)
	AttachAccount(ctx context.Context, args RequestArgs, env RequestEnv) (AuthResponse, error)
	ResolveConflict(ctx context.Context, args RequestArgs, env RequestEnv) (AuthResponse, error)
}
