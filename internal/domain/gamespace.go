package domain

import "context"

// GamespaceCatalog resolves a gamespace name to its external id.
type GamespaceCatalog interface {
	// Resolve returns the gamespace id for a name, or ok=false if unknown.
	Resolve(ctx context.Context, name string) (id string, ok bool, err error)
}

// ScopeResolver fetches per-gamespace allowed scopes and per-account granted
// scopes. It is read-mostly and safe for concurrent use.
type ScopeResolver interface {
	// AccountScopes returns the scopes an account has been explicitly
	// granted in a gamespace. An empty set (not an error) is returned when
	// the account has no grants recorded.
	AccountScopes(ctx context.Context, gamespace, account string) ([]string, error)
	// GamespaceScopes returns the scopes every account in the gamespace is
	// allowed, independent of any per-account grant.
	GamespaceScopes(ctx context.Context, gamespace string) ([]string, error)
}
