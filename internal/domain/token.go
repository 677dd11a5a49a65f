package domain

import (
	"context"
	"time"
)

// AccessToken is a signed envelope carrying scopes, the bound account id,
// gamespace id, an issuer tag, and a uuid. Unique tokens are registered in
// TokenStore (revocable, one live per account+system-name); non-unique
// tokens are unregistered and irrevocable, gated behind the
// "auth_non_unique" scope.
type AccessToken struct {
	UUID      string
	Account   string
	Gamespace string
	// Credential is the credential that authenticated this token's session.
	// attach_account reads it back off access_token to drive the merge.
	Credential Credential
	Scopes     []string
	Issuer     string
	Unique     bool
	ExpiresAt  time.Time
}

// ResolveTokenClaims is the decoded content of a resolve token: scope
// resolve_conflict, subject the credential under conflict, claim the
// gamespace it was issued against. It carries no account.
type ResolveTokenClaims struct {
	UUID       string
	Credential Credential
	Gamespace  string
	ExpiresAt  time.Time
}

// TokenSigner mints and verifies signed tokens. The private key is held
// process-wide; lookups are pure functions of the signed payload.
type TokenSigner interface {
	// Sign mints an access token. When unique is false the token is never
	// handed to TokenStore and carries no ISSUER claim.
	Sign(token AccessToken) (string, error)
	// Verify decodes and validates the signature and expiry of an access token.
	Verify(raw string) (AccessToken, error)
	// SignResolveToken mints a short-lived token scoped to resolve_conflict.
	SignResolveToken(credential Credential, gamespace string, ttl time.Duration) (string, error)
	// VerifyResolveToken decodes a resolve token, checking signature, scope
	// and expiry. Gamespace and credential come from the token, never the
	// request body.
	VerifyResolveToken(raw string) (ResolveTokenClaims, error)
}

// TokenStore persists active (account, system-name, uuid, expires) records
// for unique tokens. invalidate_account revokes all unique tokens for the
// account, regardless of system-name -- the merge flow relies on this
// all-for-account semantics when relinking credentials away from an account.
type TokenStore interface {
	// Save records uuid as the live token for (account, name), invalidating
	// whatever token previously held that slot.
	Save(ctx context.Context, account, uuid string, expiresAt time.Time, name string) error
	// InvalidateAccount revokes every unique token belonging to account.
	InvalidateAccount(ctx context.Context, account string) error
	// IsLive reports whether uuid is still the recorded token for (account, name).
	IsLive(ctx context.Context, account, name, uuid string) (bool, error)
}

const (
	ScopeResolveConflict = "resolve_conflict"
	ScopeAuthNonUnique   = "auth_non_unique"
	DefaultTokenName     = "def"
	LoginIssuer          = "login"
)
