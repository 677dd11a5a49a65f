package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// LocalCredentialTypes are auto-creatable and movable during account merges.
var LocalCredentialTypes = map[string]bool{
	"anonymous": true,
	"dev":       true,
}

var credentialTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Credential is the tagged (type, username) pair backing a credential link.
// The textual "type:username" form is kept only at the storage and protocol
// boundaries; the rest of the system operates on this struct.
type Credential struct {
	Type     string
	Username string
}

// ParseCredential splits a "type:username" string, keeping only the first
// colon so embedded colons in the username survive intact.
func ParseCredential(s string) (Credential, error) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return Credential{}, fmt.Errorf("malformed credential %q: missing type separator", s)
	}
	t, username := s[:idx], s[idx+1:]
	if !credentialTypePattern.MatchString(t) {
		return Credential{}, fmt.Errorf("malformed credential %q: invalid type %q", s, t)
	}
	if username == "" {
		return Credential{}, fmt.Errorf("malformed credential %q: empty username", s)
	}
	return Credential{Type: t, Username: username}, nil
}

func (c Credential) String() string {
	return c.Type + ":" + c.Username
}

func (c Credential) IsLocal() bool {
	return LocalCredentialTypes[c.Type]
}

// CredentialStore persists credential<->account links. The store physically
// allows many-to-many so the service can detect conflicts and drive
// resolution instead of the store silently enforcing uniqueness.
type CredentialStore interface {
	// Attach is an idempotent insert of the (credential, account) link.
	Attach(ctx context.Context, credential Credential, account string) error
	// Detach removes the link; a no-op if it is already absent.
	Detach(ctx context.Context, credential Credential, account string) error
	// ListAccounts returns every account linked to this credential.
	ListAccounts(ctx context.Context, credential Credential) ([]string, error)
	// ListAccountCredentials returns the credentials of an account, optionally
	// restricted to the given set of types. A nil typeFilter returns all of them.
	ListAccountCredentials(ctx context.Context, account string, typeFilter map[string]bool) ([]Credential, error)
	// GetAccount returns the sole account linked to credential, or
	// ErrCredentialNotFound if none is linked.
	GetAccount(ctx context.Context, credential Credential) (string, error)
}

// ErrCredentialNotFound is returned by CredentialStore.GetAccount when the
// credential has no linked account.
var ErrCredentialNotFound = fmt.Errorf("credential not found")
