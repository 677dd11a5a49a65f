package account

import (
	"context"
	"fmt"
	"time"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/google/uuid"
)

// fakeCredentialStore is an in-memory domain.CredentialStore good enough to
// exercise every branch of the merge state machine without a database.
type fakeCredentialStore struct {
	links map[string]map[string]bool // credential string -> set of accounts
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{links: map[string]map[string]bool{}}
}

func (f *fakeCredentialStore) Attach(_ context.Context, credential domain.Credential, account string) error {
	key := credential.String()
	if f.links[key] == nil {
		f.links[key] = map[string]bool{}
	}
	f.links[key][account] = true
	return nil
}

func (f *fakeCredentialStore) Detach(_ context.Context, credential domain.Credential, account string) error {
	delete(f.links[credential.String()], account)
	return nil
}

func (f *fakeCredentialStore) ListAccounts(_ context.Context, credential domain.Credential) ([]string, error) {
	var out []string
	for a := range f.links[credential.String()] {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeCredentialStore) ListAccountCredentials(_ context.Context, account string, typeFilter map[string]bool) ([]domain.Credential, error) {
	var out []domain.Credential
	for key, accounts := range f.links {
		if !accounts[account] {
			continue
		}
		cred, err := domain.ParseCredential(key)
		if err != nil {
			return nil, err
		}
		if typeFilter != nil && !typeFilter[cred.Type] {
			continue
		}
		out = append(out, cred)
	}
	return out, nil
}

func (f *fakeCredentialStore) GetAccount(_ context.Context, credential domain.Credential) (string, error) {
	accounts := f.links[credential.String()]
	for a := range accounts {
		return a, nil
	}
	return "", domain.ErrCredentialNotFound
}

// fakeAccountStore is an in-memory domain.AccountStore.
type fakeAccountStore struct {
	next     int
	accounts map[string]map[string]interface{}
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]map[string]interface{}{}}
}

func (f *fakeAccountStore) CreateAccount(_ context.Context) (string, error) {
	f.next++
	id := fmt.Sprintf("%d", f.next)
	f.accounts[id] = map[string]interface{}{}
	return id, nil
}

func (f *fakeAccountStore) Exists(_ context.Context, account string) (bool, error) {
	_, ok := f.accounts[account]
	return ok, nil
}

func (f *fakeAccountStore) GetInfo(_ context.Context, account string) (map[string]interface{}, error) {
	return f.accounts[account], nil
}

func (f *fakeAccountStore) UpdateInfo(_ context.Context, account string, patch map[string]interface{}) error {
	f.accounts[account] = domain.MergeInfo(f.accounts[account], patch)
	return nil
}

func (f *fakeAccountStore) Delete(_ context.Context, account string) error {
	delete(f.accounts, account)
	return nil
}

func (f *fakeAccountStore) AccountsDeleted(_ context.Context, _ string, accounts []string, gamespaceOnly bool) error {
	if gamespaceOnly {
		return nil
	}
	for _, a := range accounts {
		delete(f.accounts, a)
	}
	return nil
}

// fakeTokenStore is an in-memory domain.TokenStore.
type fakeTokenStore struct {
	invalidated map[string]int
	saved       map[string]string // slot key -> uuid
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{invalidated: map[string]int{}, saved: map[string]string{}}
}

func (f *fakeTokenStore) Save(_ context.Context, account, tokenUUID string, _ time.Time, name string) error {
	f.saved[account+":"+name] = tokenUUID
	return nil
}

func (f *fakeTokenStore) InvalidateAccount(_ context.Context, account string) error {
	f.invalidated[account]++
	for k := range f.saved {
		if len(k) > len(account) && k[:len(account)+1] == account+":" {
			delete(f.saved, k)
		}
	}
	return nil
}

func (f *fakeTokenStore) IsLive(_ context.Context, account, name, tokenUUID string) (bool, error) {
	return f.saved[account+":"+name] == tokenUUID, nil
}

// fakeScopeCatalog is both a domain.GamespaceCatalog and a domain.ScopeResolver.
type fakeScopeCatalog struct {
	gamespaces      map[string]string
	accountScopes   map[string][]string
	gamespaceScopes []string
}

func newFakeScopeCatalog() *fakeScopeCatalog {
	return &fakeScopeCatalog{
		gamespaces:    map[string]string{"main": "gs-1"},
		accountScopes: map[string][]string{},
	}
}

func (f *fakeScopeCatalog) Resolve(_ context.Context, name string) (string, bool, error) {
	id, ok := f.gamespaces[name]
	return id, ok, nil
}

func (f *fakeScopeCatalog) AccountScopes(_ context.Context, _ string, account string) ([]string, error) {
	return f.accountScopes[account], nil
}

func (f *fakeScopeCatalog) GamespaceScopes(_ context.Context, _ string) ([]string, error) {
	return f.gamespaceScopes, nil
}

// fakeAuthenticator is a domain.Authenticator that always succeeds, reporting
// whichever (type, username) the test wired it with. calls counts how many
// times Authorize actually ran, so tests can assert it was never reached.
type fakeAuthenticator struct {
	credType      string
	username      string
	socialProfile bool
	calls         int
}

func (a *fakeAuthenticator) Type() string        { return a.credType }
func (a *fakeAuthenticator) SocialProfile() bool { return a.socialProfile }
func (a *fakeAuthenticator) Authorize(_ context.Context, _ string, args domain.RequestArgs, _ domain.RequestEnv) (domain.AuthResult, error) {
	a.calls++
	username := a.username
	if u, ok := args["username"]; ok && u != "" {
		username = u
	}
	return domain.AuthResult{CredentialType: a.credType, Username: username}, nil
}

// fakeSocialBridge swallows every call, matching the real bridge's
// fire-and-forget semantics, without touching the network. importErr, when
// set, is returned by ImportSocial so tests can exercise both the discovery
// (swallowed) and protocol-level (fatal) branches.
type fakeSocialBridge struct {
	importErr error
}

func (f fakeSocialBridge) ImportSocial(context.Context, string, domain.Credential, string, map[string]interface{}) error {
	return f.importErr
}

func (fakeSocialBridge) AttachAccount(context.Context, string, domain.Credential, string, domain.RequestEnv, bool) (map[string]interface{}, error) {
	return nil, nil
}

func (fakeSocialBridge) UpdateProfile(context.Context, string, string, map[string]interface{}) error {
	return nil
}

func (fakeSocialBridge) MassProfiles(_ context.Context, _ string, accounts []string) (map[string]map[string]interface{}, error) {
	out := make(map[string]map[string]interface{}, len(accounts))
	for _, a := range accounts {
		out[a] = map[string]interface{}{}
	}
	return out, nil
}

// passthroughTransactions runs fn directly: the fakes have no real
// transactional isolation to provide.
type passthroughTransactions struct{}

func (passthroughTransactions) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (passthroughTransactions) Commit(context.Context) error                       { return nil }
func (passthroughTransactions) Rollback(context.Context) error                     { return nil }
func (passthroughTransactions) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// fakeSigner is a minimal domain.TokenSigner backed by an in-process map, so
// tests can mint attach_to/resolve tokens without a real JWT round trip.
type fakeSigner struct {
	tokens        map[string]domain.AccessToken
	resolveTokens map[string]domain.ResolveTokenClaims
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{
		tokens:        map[string]domain.AccessToken{},
		resolveTokens: map[string]domain.ResolveTokenClaims{},
	}
}

func (s *fakeSigner) Sign(token domain.AccessToken) (string, error) {
	raw := "access-" + uuid.NewString()
	s.tokens[raw] = token
	return raw, nil
}

func (s *fakeSigner) Verify(raw string) (domain.AccessToken, error) {
	tok, ok := s.tokens[raw]
	if !ok {
		return domain.AccessToken{}, fmt.Errorf("unknown token")
	}
	return tok, nil
}

func (s *fakeSigner) SignResolveToken(credential domain.Credential, gamespace string, ttl time.Duration) (string, error) {
	raw := "resolve-" + uuid.NewString()
	s.resolveTokens[raw] = domain.ResolveTokenClaims{
		UUID:       raw,
		Credential: credential,
		Gamespace:  gamespace,
		ExpiresAt:  time.Now().Add(ttl),
	}
	return raw, nil
}

func (s *fakeSigner) VerifyResolveToken(raw string) (domain.ResolveTokenClaims, error) {
	claims, ok := s.resolveTokens[raw]
	if !ok {
		return domain.ResolveTokenClaims{}, fmt.Errorf("unknown resolve token")
	}
	return claims, nil
}

// testFakes holds the fakes that newTestService wires into a Service the way
// container.go wires the real adapters; newTestService returns them beside
// the Service so a test can assert against them.
type testFakes struct {
	credentials *fakeCredentialStore
	accounts    *fakeAccountStore
	tokens      *fakeTokenStore
	signer      *fakeSigner
	scopes      *fakeScopeCatalog
	social      *fakeSocialBridge
}

func newTestService(authenticators ...domain.Authenticator) (*Service, *testFakes) {
	f := &testFakes{
		credentials: newFakeCredentialStore(),
		accounts:    newFakeAccountStore(),
		tokens:      newFakeTokenStore(),
		signer:      newFakeSigner(),
		scopes:      newFakeScopeCatalog(),
		social:      &fakeSocialBridge{},
	}
	deps := domain.AccountServiceDeps{
		Credentials:    f.credentials,
		Accounts:       f.accounts,
		Tokens:         f.tokens,
		Signer:         f.signer,
		Gamespaces:     f.scopes,
		Scopes:         f.scopes,
		Authenticators: domain.NewMapRegistry(authenticators...),
		Social:         f.social,
		Transactions:   passthroughTransactions{},
	}
	return New(deps), f
}
