package account

import (
	"context"
	"testing"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authErr(t *testing.T, err error) *domain.AuthenticationError {
	t.Helper()
	ae, ok := err.(*domain.AuthenticationError)
	require.Truef(t, ok, "expected *domain.AuthenticationError, got %T: %v", err, err)
	return ae
}

func TestAuthorizeMissingArguments(t *testing.T) {
	svc, _ := newTestService(&fakeAuthenticator{credType: "dev", username: "alice"})
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{"scopes": "read", "gamespace_id": "gs-1"}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultMissingArgument, authErr(t, err).ResultID)

	_, err = svc.Authorize(ctx, domain.RequestArgs{"credential": "dev", "gamespace_id": "gs-1"}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultMissingArgument, authErr(t, err).ResultID)
}

func TestAuthorizeFirstLoginCreatesAccount(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev", username: "alice"})
	ctx := context.Background()

	resp, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "alice",
		"scopes":       "read",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Account)
	assert.Equal(t, "dev:alice", resp.Credential)

	accounts, err := f.credentials.ListAccounts(ctx, domain.Credential{Type: "dev", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{resp.Account}, accounts)
}

func TestAuthorizeSameCredentialReusesAccount(t *testing.T) {
	svc, _ := newTestService(&fakeAuthenticator{credType: "dev", username: "bob"})
	ctx := context.Background()
	args := domain.RequestArgs{
		"credential":   "dev",
		"username":     "bob",
		"scopes":       "read",
		"gamespace_id": "gs-1",
	}

	first, err := svc.Authorize(ctx, args, domain.RequestEnv{})
	require.NoError(t, err)

	second, err := svc.Authorize(ctx, args, domain.RequestEnv{})
	require.NoError(t, err)

	assert.Equal(t, first.Account, second.Account)
}

func TestAuthorizeUnknownCredentialType(t *testing.T) {
	svc, _ := newTestService(&fakeAuthenticator{credType: "dev", username: "bob"})
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "oauth_google",
		"scopes":       "read",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultUnknownCredential, authErr(t, err).ResultID)
}

func TestAuthorizeCredentialAttachedToMultipleAccountsRaisesConflict(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev", username: "frank"})
	ctx := context.Background()

	frank := domain.Credential{Type: "dev", Username: "frank"}
	accountG1, _ := f.accounts.CreateAccount(ctx)
	accountG2, _ := f.accounts.CreateAccount(ctx)
	_ = f.credentials.Attach(ctx, frank, accountG1)
	_ = f.credentials.Attach(ctx, frank, accountG2)

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "frank",
		"scopes":       "read",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})

	ae := authErr(t, err)
	assert.Equal(t, 300, ae.Code)
	assert.Equal(t, domain.ResultMultipleAccountsAttached, ae.ResultID)
	assert.NotEmpty(t, ae.Fields["resolve_token"])
	summaries, ok := ae.Fields["accounts"].([]domain.AccountSummary)
	require.True(t, ok)
	assert.Len(t, summaries, 2)
}

func TestAttachAccountNoConflictAttachesCredential(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev"})
	ctx := context.Background()

	accountB, err := f.accounts.CreateAccount(ctx)
	require.NoError(t, err)
	attachToken, err := f.signer.Sign(domain.AccessToken{Account: accountB, Gamespace: "gs-1"})
	require.NoError(t, err)

	bobCredential := domain.Credential{Type: "dev", Username: "bob"}
	accessToken, err := f.signer.Sign(domain.AccessToken{
		Account:    "unused-source-account",
		Gamespace:  "gs-1",
		Credential: bobCredential,
	})
	require.NoError(t, err)

	resp, err := svc.AttachAccount(ctx, domain.RequestArgs{
		"access_token": accessToken,
		"attach_to":    attachToken,
		"scopes":       "read",
	}, domain.RequestEnv{})
	require.NoError(t, err)
	assert.Equal(t, accountB, resp.Account)

	accounts, err := f.credentials.ListAccounts(ctx, bobCredential)
	require.NoError(t, err)
	assert.Equal(t, []string{accountB}, accounts)
}

func TestAttachAccountWrongGamespaceRejected(t *testing.T) {
	svc, f := newTestService()
	ctx := context.Background()

	accountB, _ := f.accounts.CreateAccount(ctx)
	attachToken, _ := f.signer.Sign(domain.AccessToken{Account: accountB, Gamespace: "gs-2"})
	accessToken, _ := f.signer.Sign(domain.AccessToken{
		Account:    "src",
		Gamespace:  "gs-1",
		Credential: domain.Credential{Type: "dev", Username: "carl"},
	})

	_, err := svc.AttachAccount(ctx, domain.RequestArgs{
		"access_token": accessToken,
		"attach_to":    attachToken,
		"scopes":       "read",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultWrongGamespace, authErr(t, err).ResultID)
}

func TestAttachAccountRaisesMergeRequiredThenResolvesLocal(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev"})
	ctx := context.Background()

	carol := domain.Credential{Type: "dev", Username: "carol"}
	accountC, err := f.accounts.CreateAccount(ctx)
	require.NoError(t, err)
	require.NoError(t, f.credentials.Attach(ctx, carol, accountC))

	dave := domain.Credential{Type: "other", Username: "dave"}
	accountD, err := f.accounts.CreateAccount(ctx)
	require.NoError(t, err)
	require.NoError(t, f.credentials.Attach(ctx, dave, accountD))

	attachToken, err := f.signer.Sign(domain.AccessToken{Account: accountD, Gamespace: "gs-1", Credential: dave})
	require.NoError(t, err)
	accessToken, err := f.signer.Sign(domain.AccessToken{Account: accountC, Gamespace: "gs-1", Credential: carol})
	require.NoError(t, err)

	_, err = svc.AttachAccount(ctx, domain.RequestArgs{
		"access_token": accessToken,
		"attach_to":    attachToken,
		"scopes":       "read",
	}, domain.RequestEnv{})

	ae := authErr(t, err)
	assert.Equal(t, domain.ResultMergeRequired, ae.ResultID)
	assert.Equal(t, 409, ae.Code)
	resolveToken, ok := ae.Fields["resolve_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, resolveToken)

	resp, err := svc.ResolveConflict(ctx, domain.RequestArgs{
		"resolve_token": resolveToken,
		"method":        "merge_required",
		"resolve_with":  "local",
		"attach_to":     attachToken,
		"scopes":        "read",
	}, domain.RequestEnv{})
	require.NoError(t, err)
	assert.Equal(t, accountD, resp.Account)

	accounts, err := f.credentials.ListAccounts(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, []string{accountD}, accounts)
	assert.Equal(t, 1, f.tokens.invalidated[accountC])
}

func TestAttachAccountMultipleAccountsAttachedConflict(t *testing.T) {
	svc, f := newTestService()
	ctx := context.Background()

	erin := domain.Credential{Type: "dev", Username: "erin"}
	accountE1, _ := f.accounts.CreateAccount(ctx)
	accountE2, _ := f.accounts.CreateAccount(ctx)
	require.NoError(t, f.credentials.Attach(ctx, erin, accountE1))
	require.NoError(t, f.credentials.Attach(ctx, erin, accountE2))

	accountF, _ := f.accounts.CreateAccount(ctx)
	attachToken, _ := f.signer.Sign(domain.AccessToken{Account: accountF, Gamespace: "gs-1"})
	accessToken, _ := f.signer.Sign(domain.AccessToken{Account: accountE1, Gamespace: "gs-1", Credential: erin})

	_, err := svc.AttachAccount(ctx, domain.RequestArgs{
		"access_token": accessToken,
		"attach_to":    attachToken,
		"scopes":       "read",
	}, domain.RequestEnv{})

	ae := authErr(t, err)
	assert.Equal(t, domain.ResultMultipleAccountsAttached, ae.ResultID)
	assert.Equal(t, 409, ae.Code)
}

func TestResolveConflictMultipleAccountsAttachedMethod(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev"})
	ctx := context.Background()

	erin := domain.Credential{Type: "dev", Username: "erin"}
	accountE1, _ := f.accounts.CreateAccount(ctx)
	accountE2, _ := f.accounts.CreateAccount(ctx)
	require.NoError(t, f.credentials.Attach(ctx, erin, accountE1))
	require.NoError(t, f.credentials.Attach(ctx, erin, accountE2))

	resolveToken, err := f.signer.SignResolveToken(erin, "gs-1", 0)
	require.NoError(t, err)

	resp, err := svc.ResolveConflict(ctx, domain.RequestArgs{
		"resolve_token": resolveToken,
		"method":        "multiple_accounts_attached",
		"resolve_with":  accountE2,
		"scopes":        "read",
	}, domain.RequestEnv{})
	require.NoError(t, err)
	assert.Equal(t, accountE2, resp.Account)

	accounts, err := f.credentials.ListAccounts(ctx, erin)
	require.NoError(t, err)
	assert.Equal(t, []string{accountE2}, accounts)
}

func TestResolveConflictUnknownResolveWithRejected(t *testing.T) {
	svc, f := newTestService()
	ctx := context.Background()

	erin := domain.Credential{Type: "dev", Username: "erin"}
	accountE1, _ := f.accounts.CreateAccount(ctx)
	require.NoError(t, f.credentials.Attach(ctx, erin, accountE1))
	resolveToken, err := f.signer.SignResolveToken(erin, "gs-1", 0)
	require.NoError(t, err)

	_, err = svc.ResolveConflict(ctx, domain.RequestArgs{
		"resolve_token": resolveToken,
		"method":        "multiple_accounts_attached",
		"resolve_with":  "not-a-real-account",
		"scopes":        "read",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultCannotResolveConflict, authErr(t, err).ResultID)
}

func TestProceedAuthenticationScopeRestricted(t *testing.T) {
	svc, _ := newTestService(&fakeAuthenticator{credType: "dev", username: "gina"})
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "gina",
		"scopes":       "admin",
		"should_have":  "admin",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultScopeRestricted, authErr(t, err).ResultID)
}

func TestProceedAuthenticationScopeSilentlyDroppedWithoutShouldHave(t *testing.T) {
	svc, _ := newTestService(&fakeAuthenticator{credType: "dev", username: "gina"})
	ctx := context.Background()

	resp, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "gina",
		"scopes":       "admin",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})
	require.NoError(t, err)
	assert.Empty(t, resp.Scopes)
}

func TestProceedAuthenticationNonUniqueRequiresScope(t *testing.T) {
	svc, _ := newTestService(&fakeAuthenticator{credType: "dev", username: "hank"})
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "hank",
		"scopes":       "read",
		"unique":       "false",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultNonUniqueTokenRestricted, authErr(t, err).ResultID)
}

func TestProceedAuthenticationNonUniqueAllowedWithScope(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev", username: "hank"})
	f.scopes.gamespaceScopes = []string{domain.ScopeAuthNonUnique}
	ctx := context.Background()

	resp, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "hank",
		"scopes":       "read",
		"unique":       "false",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Zero(t, f.tokens.saved[resp.Account+":"+domain.DefaultTokenName])
}

func TestAuthorizeBadAccountInfoRejected(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev", username: "ivan"})
	f.scopes.gamespaceScopes = []string{"read"}
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "ivan",
		"scopes":       "read",
		"gamespace_id": "gs-1",
		"info":         "{not-json",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultBadAccountInfo, authErr(t, err).ResultID)
}

func TestAuthorizeUnknownGamespaceRejected(t *testing.T) {
	svc, _ := newTestService(&fakeAuthenticator{credType: "dev", username: "jill"})
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential": "dev",
		"username":   "jill",
		"scopes":     "read",
		"gamespace":  "no-such-gamespace",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultNoSuchGamespace, authErr(t, err).ResultID)
}

func TestAuthorizeUnknownCredentialTakesPriorityOverBadGamespace(t *testing.T) {
	svc, _ := newTestService(&fakeAuthenticator{credType: "dev", username: "jill"})
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential": "oauth_google",
		"scopes":     "read",
		"gamespace":  "no-such-gamespace",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultUnknownCredential, authErr(t, err).ResultID)
}

func TestAuthorizeInvalidAttachToRejectedBeforeAuthenticatorRuns(t *testing.T) {
	authenticator := &fakeAuthenticator{credType: "dev", username: "kate"}
	svc, _ := newTestService(authenticator)
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "kate",
		"scopes":       "read",
		"gamespace_id": "gs-1",
		"attach_to":    "not-a-real-token",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultAttachToTokenInvalid, authErr(t, err).ResultID)
	assert.Zero(t, authenticator.calls)
}

func TestAuthorizeSocialImportProtocolFailureFailsAuthentication(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev", username: "liam", socialProfile: true})
	f.social.importErr = &domain.SocialImportError{Code: 500, Message: "boom", Discovery: false}
	ctx := context.Background()

	_, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "liam",
		"scopes":       "read",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})
	assert.Equal(t, domain.ResultFailedToImportSocial, authErr(t, err).ResultID)
}

func TestAuthorizeSocialImportDiscoveryFailureIsSwallowed(t *testing.T) {
	svc, f := newTestService(&fakeAuthenticator{credType: "dev", username: "mia", socialProfile: true})
	f.social.importErr = &domain.SocialImportError{Message: "could not reach social service", Discovery: true}
	ctx := context.Background()

	resp, err := svc.Authorize(ctx, domain.RequestArgs{
		"credential":   "dev",
		"username":     "mia",
		"scopes":       "read",
		"gamespace_id": "gs-1",
	}, domain.RequestEnv{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Account)
}

func TestLookupAccountCreatesThenReuses(t *testing.T) {
	svc, f := newTestService()
	ctx := context.Background()
	credential := domain.Credential{Type: "dev", Username: "noah"}

	first, err := svc.LookupAccount(ctx, credential)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := svc.LookupAccount(ctx, credential)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	accounts, err := f.credentials.ListAccounts(ctx, credential)
	require.NoError(t, err)
	assert.Equal(t, []string{first}, accounts)
}
