package domain

import "context"

// Account is the stable internal identity. The id is an opaque string of a
// positive integer assigned by the store; account_info is a JSON object
// merged by deep union on update, never replaced wholesale.
type Account struct {
	ID   string
	Info map[string]interface{}
}

// AccountStore creates, reads, updates and deletes account rows. It has no
// notion of credentials; CredentialStore owns the link table.
type AccountStore interface {
	// CreateAccount inserts a row with empty JSON info and returns the new id.
	CreateAccount(ctx context.Context) (string, error)
	Exists(ctx context.Context, account string) (bool, error)
	GetInfo(ctx context.Context, account string) (map[string]interface{}, error)
	// UpdateInfo deep-merges patch into the stored account_info.
	UpdateInfo(ctx context.Context, account string, patch map[string]interface{}) error
	// Delete removes the account row. The caller must have already detached
	// every credential pointing at it.
	Delete(ctx context.Context, account string) error
	// AccountsDeleted performs a batched cascade delete of credentials and
	// accounts triggered by an external account-deletion event. When
	// gamespaceOnly is true there is no work to do: the core has no
	// per-gamespace data of its own.
	AccountsDeleted(ctx context.Context, gamespace string, accounts []string, gamespaceOnly bool) error
}

// MergeInfo deep-merges patch into base, returning a new map. Keys in patch
// overwrite scalars and recursively merge into nested objects.
func MergeInfo(base, patch map[string]interface{}) map[string]interface{} {
	if base == nil {
		base = map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, pv := range patch {
		if bv, ok := out[k]; ok {
			bm, bok := bv.(map[string]interface{})
			pm, pok := pv.(map[string]interface{})
			if bok && pok {
				out[k] = MergeInfo(bm, pm)
				continue
			}
		}
		out[k] = pv
	}
	return out
}
