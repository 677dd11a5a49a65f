// Package account implements the credential/account merge state machine:
// authorize, attach_account and resolve_conflict all share the same
// proceed_authentication tail.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/anthill/accountsvc/pkg/logger"
	"github.com/google/uuid"
)

const lockTTL = 10 * time.Second

var tokenNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Service is the concrete domain.AccountService.
type Service struct {
	deps domain.AccountServiceDeps
}

func New(deps domain.AccountServiceDeps) *Service {
	if deps.ResolveTokenTTL == 0 {
		deps.ResolveTokenTTL = 5 * time.Minute
	}
	if deps.AccessTokenTTL == 0 {
		deps.AccessTokenTTL = time.Hour
	}
	return &Service{deps: deps}
}

// Authorize is the entry point for a fresh credential proof. The
// credential-type lookup and attach_to validation both happen before the
// authenticator is ever invoked, so a bad credential type or a bad attach_to
// token never drives a real (possibly side-effecting) authenticator call.
func (s *Service) Authorize(ctx context.Context, args domain.RequestArgs, env domain.RequestEnv) (domain.AuthResponse, error) {
	credentialType, ok := args["credential"]
	if !ok || credentialType == "" {
		return domain.AuthResponse{}, domain.MissingArgument("credential")
	}

	requestedScopes, err := requireScopes(args)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	authenticator, ok := s.deps.Authenticators.Lookup(credentialType)
	if !ok {
		return domain.AuthResponse{}, domain.UnknownCredential(credentialType)
	}

	var attachTo *domain.AccessToken
	if raw, ok := args["attach_to"]; ok && raw != "" {
		tok, err := s.deps.Signer.Verify(raw)
		if err != nil {
			return domain.AuthResponse{}, domain.AttachToTokenInvalid(err.Error())
		}
		attachTo = &tok
	}

	gamespaceID, err := s.resolveGamespace(ctx, args)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	result, err := authenticator.Authorize(ctx, gamespaceID, args, env)
	if err != nil {
		return domain.AuthResponse{}, remapAuthenticatorError(err)
	}

	credential := domain.Credential{Type: result.CredentialType, Username: result.Username}

	if authenticator.SocialProfile() && args["import_profile"] != "false" {
		if err := s.deps.Social.ImportSocial(ctx, gamespaceID, credential, result.Username, result.Response); err != nil {
			if impErr, ok := err.(*domain.SocialImportError); ok && !impErr.Discovery {
				return domain.AuthResponse{}, domain.FailedToImportSocial(impErr.Message)
			}
			logger.Warnf("import_social failed for %s, continuing: %v", credential, err)
		}
	}

	var account string

	err = s.withCredentialLock(ctx, credential, func(ctx context.Context) error {
		return s.deps.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
			var err error
			if attachTo != nil {
				account, err = s.mergeAccounts(ctx, *attachTo, credential, domain.ResolvePending, gamespaceID)
				return err
			}

			accounts, lerr := s.deps.Credentials.ListAccounts(ctx, credential)
			if lerr != nil {
				return domain.NewAccountError("list accounts for credential", lerr)
			}

			switch len(accounts) {
			case 0:
				newAccount, cerr := s.deps.Accounts.CreateAccount(ctx)
				if cerr != nil {
					return domain.NewAccountError("create account", cerr)
				}
				if aerr := s.deps.Credentials.Attach(ctx, credential, newAccount); aerr != nil {
					return domain.NewAccountError("attach credential", aerr)
				}
				account = newAccount
			case 1:
				account = accounts[0]
			default:
				summaries, serr := s.summarize(ctx, gamespaceID, accounts, nil)
				if serr != nil {
					return serr
				}
				resolveToken, terr := s.deps.Signer.SignResolveToken(credential, gamespaceID, s.deps.ResolveTokenTTL)
				if terr != nil {
					return domain.NewAccountError("sign resolve token", terr)
				}
				return domain.MultipleAccountsAttached(300, summaries).WithField("resolve_token", resolveToken)
			}
			return nil
		})
	})
	if err != nil {
		return domain.AuthResponse{}, err
	}

	return s.proceedAuthentication(ctx, account, credential, gamespaceID, requestedScopes, args, env)
}

// AttachAccount links the credential behind access_token onto the account
// identified by attach_to.
func (s *Service) AttachAccount(ctx context.Context, args domain.RequestArgs, env domain.RequestEnv) (domain.AuthResponse, error) {
	rawAccess, ok := args["access_token"]
	if !ok || rawAccess == "" {
		return domain.AuthResponse{}, domain.MissingArgument("access_token")
	}
	rawAttach, ok := args["attach_to"]
	if !ok || rawAttach == "" {
		return domain.AuthResponse{}, domain.MissingArgument("attach_to")
	}
	requestedScopes, err := requireScopes(args)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	accessToken, err := s.deps.Signer.Verify(rawAccess)
	if err != nil {
		return domain.AuthResponse{}, domain.AccessTokenInvalid(err.Error())
	}
	if accessToken.Credential.Type == "" {
		return domain.AuthResponse{}, domain.AccessTokenInvalid("token carries no credential")
	}
	attachToken, err := s.deps.Signer.Verify(rawAttach)
	if err != nil {
		return domain.AuthResponse{}, domain.AttachToTokenInvalid(err.Error())
	}

	if accessToken.Gamespace != attachToken.Gamespace {
		return domain.AuthResponse{}, domain.WrongGamespace()
	}

	var account string
	err = s.withCredentialLock(ctx, accessToken.Credential, func(ctx context.Context) error {
		return s.deps.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
			var merr error
			account, merr = s.mergeAccounts(ctx, attachToken, accessToken.Credential, domain.ResolvePending, accessToken.Gamespace)
			return merr
		})
	})
	if err != nil {
		return domain.AuthResponse{}, err
	}

	return s.proceedAuthentication(ctx, account, accessToken.Credential, accessToken.Gamespace, requestedScopes, args, env)
}

// ResolveConflict completes a merge_required or multiple_accounts_attached
// conflict previously raised against the same credential.
func (s *Service) ResolveConflict(ctx context.Context, args domain.RequestArgs, env domain.RequestEnv) (domain.AuthResponse, error) {
	rawResolve, ok := args["resolve_token"]
	if !ok || rawResolve == "" {
		return domain.AuthResponse{}, domain.MissingArgument("resolve_token")
	}
	method, ok := args["method"]
	if !ok || method == "" {
		return domain.AuthResponse{}, domain.MissingArgument("method")
	}
	requestedScopes, err := requireScopes(args)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	resolveWith, ok := args["resolve_with"]
	if !ok || resolveWith == "" {
		return domain.AuthResponse{}, domain.MissingArgument("resolve_with")
	}

	claims, err := s.deps.Signer.VerifyResolveToken(rawResolve)
	if err != nil {
		return domain.AuthResponse{}, domain.AccessTokenInvalid(err.Error())
	}

	var account string

	switch method {
	case "multiple_accounts_attached":
		err = s.deps.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
			accounts, lerr := s.deps.Credentials.ListAccounts(ctx, claims.Credential)
			if lerr != nil {
				return domain.NewAccountError("list accounts for credential", lerr)
			}
			if !containsString(accounts, resolveWith) {
				return domain.CannotResolveConflict()
			}
			for _, a := range accounts {
				if a == resolveWith {
					continue
				}
				if derr := s.deps.Credentials.Detach(ctx, claims.Credential, a); derr != nil {
					return domain.NewAccountError("detach losing account", derr)
				}
			}
			account = resolveWith
			return nil
		})

	case "merge_required":
		rawAttach, ok := args["attach_to"]
		if !ok || rawAttach == "" {
			return domain.AuthResponse{}, domain.MissingArgument("attach_to")
		}
		attachToken, verr := s.deps.Signer.Verify(rawAttach)
		if verr != nil {
			return domain.AuthResponse{}, domain.AttachToTokenInvalid(verr.Error())
		}
		resolve, ok := domain.ParseResolve(resolveWith)
		if !ok {
			return domain.AuthResponse{}, domain.UnknownMergeOption(resolveWith)
		}

		err = s.withCredentialLock(ctx, claims.Credential, func(ctx context.Context) error {
			return s.deps.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
				var merr error
				account, merr = s.mergeAccounts(ctx, attachToken, claims.Credential, resolve, claims.Gamespace)
				return merr
			})
		})

	default:
		return domain.AuthResponse{}, domain.BadResolveMethod(method)
	}

	if err != nil {
		return domain.AuthResponse{}, err
	}

	return s.proceedAuthentication(ctx, account, claims.Credential, claims.Gamespace, requestedScopes, args, env)
}

// LookupAccount resolves the account bound to credential, creating one if
// none exists yet. Unlike Authorize it does not run an authenticator, mint a
// token or touch scopes -- it is the internal get-or-create primitive other
// services call to resolve a credential to an account without driving the
// whole authorize protocol.
func (s *Service) LookupAccount(ctx context.Context, credential domain.Credential) (string, error) {
	var account string
	err := s.withCredentialLock(ctx, credential, func(ctx context.Context) error {
		return s.deps.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
			found, err := s.deps.Credentials.GetAccount(ctx, credential)
			if err == nil {
				account = found
				return nil
			}
			if err != domain.ErrCredentialNotFound {
				return domain.NewAccountError("lookup credential", err)
			}

			newAccount, cerr := s.deps.Accounts.CreateAccount(ctx)
			if cerr != nil {
				return domain.NewAccountError("create account", cerr)
			}
			if aerr := s.deps.Credentials.Attach(ctx, credential, newAccount); aerr != nil {
				return domain.NewAccountError("attach credential", aerr)
			}
			account = newAccount
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return account, nil
}

// mergeAccounts is the __merge_accounts__ state machine. All of its store
// calls run on the single ambient transactional handle the caller already
// opened; no state is mutated before a merge_required raise.
func (s *Service) mergeAccounts(ctx context.Context, attachTo domain.AccessToken, credentialMine domain.Credential, resolve domain.Resolve, gamespace string) (string, error) {
	accountAttach := attachTo.Account
	credentialAttach := attachTo.Credential
	credentialType := credentialMine.Type

	sameCreds, err := s.deps.Credentials.ListAccountCredentials(ctx, accountAttach, map[string]bool{credentialType: true})
	if err != nil {
		return "", domain.NewAccountError("list account credentials", err)
	}
	var same *domain.Credential
	if len(sameCreds) > 0 {
		same = &sameCreds[0]
	}

	accountsMine, err := s.deps.Credentials.ListAccounts(ctx, credentialMine)
	if err != nil {
		return "", domain.NewAccountError("list accounts for credential", err)
	}

	if same != nil && *same == credentialMine {
		return accountAttach, nil
	}

	if same != nil {
		// same is a different credential of the same type already on
		// account_attach: credential_mine needs a home of its own first.
		switch len(accountsMine) {
		case 0:
			newAccount, cerr := s.deps.Accounts.CreateAccount(ctx)
			if cerr != nil {
				return "", domain.NewAccountError("create account", cerr)
			}
			if err := s.deps.Credentials.Attach(ctx, credentialMine, newAccount); err != nil {
				return "", domain.NewAccountError("attach credential", err)
			}
			if err := s.relink(ctx, credentialAttach, accountAttach, newAccount); err != nil {
				return "", err
			}
			return newAccount, nil
		case 1:
			target := accountsMine[0]
			if err := s.relink(ctx, credentialAttach, accountAttach, target); err != nil {
				return "", err
			}
			return target, nil
		default:
			return "", domain.MultipleAccountsAttached(409, nil)
		}
	}

	// same is absent: credential_type isn't on account_attach at all.
	switch len(accountsMine) {
	case 0:
		if err := s.deps.Credentials.Attach(ctx, credentialMine, accountAttach); err != nil {
			return "", domain.NewAccountError("attach credential", err)
		}
		return accountAttach, nil
	case 1:
		accountMine := accountsMine[0]
		switch resolve {
		case domain.ResolvePending:
			return "", s.mergeRequired(ctx, credentialMine, credentialAttach, accountMine, accountAttach, gamespace)
		case domain.ResolveNotMine:
			if err := s.deps.Credentials.Detach(ctx, credentialMine, accountMine); err != nil {
				return "", domain.NewAccountError("detach credential", err)
			}
			if err := s.deps.Credentials.Attach(ctx, credentialMine, accountAttach); err != nil {
				return "", domain.NewAccountError("attach credential", err)
			}
			return accountAttach, nil
		case domain.ResolveLocal:
			if err := s.deps.Credentials.Detach(ctx, credentialMine, accountMine); err != nil {
				return "", domain.NewAccountError("detach credential", err)
			}
			if err := s.deps.Credentials.Attach(ctx, credentialMine, accountAttach); err != nil {
				return "", domain.NewAccountError("attach credential", err)
			}
			localCreds, lerr := s.deps.Credentials.ListAccountCredentials(ctx, accountMine, domain.LocalCredentialTypes)
			if lerr != nil {
				return "", domain.NewAccountError("list local credentials", lerr)
			}
			for _, lc := range localCreds {
				if err := s.deps.Credentials.Detach(ctx, lc, accountMine); err != nil {
					return "", domain.NewAccountError("move local credential", err)
				}
				if err := s.deps.Credentials.Attach(ctx, lc, accountAttach); err != nil {
					return "", domain.NewAccountError("move local credential", err)
				}
			}
			if err := s.deps.Tokens.InvalidateAccount(ctx, accountMine); err != nil {
				return "", domain.NewAccountError("invalidate tokens", err)
			}
			return accountAttach, nil
		case domain.ResolveRemote:
			if err := s.deps.Credentials.Detach(ctx, credentialAttach, accountAttach); err != nil {
				return "", domain.NewAccountError("detach credential", err)
			}
			if err := s.deps.Tokens.InvalidateAccount(ctx, accountAttach); err != nil {
				return "", domain.NewAccountError("invalidate tokens", err)
			}
			if err := s.deps.Credentials.Attach(ctx, credentialAttach, accountMine); err != nil {
				return "", domain.NewAccountError("attach credential", err)
			}
			return accountMine, nil
		default:
			return "", domain.UnknownMergeOption(fmt.Sprintf("%d", resolve))
		}
	default:
		return "", domain.MultipleAccountsAttached(409, nil)
	}
}

// relink detaches credentialAttach from its current account and reattaches
// it to target, invalidating any live sessions on the losing account.
func (s *Service) relink(ctx context.Context, credentialAttach domain.Credential, from, target string) error {
	if err := s.deps.Credentials.Detach(ctx, credentialAttach, from); err != nil {
		return domain.NewAccountError("detach credential", err)
	}
	if err := s.deps.Credentials.Attach(ctx, credentialAttach, target); err != nil {
		return domain.NewAccountError("attach credential", err)
	}
	if err := s.deps.Tokens.InvalidateAccount(ctx, from); err != nil {
		return domain.NewAccountError("invalidate tokens", err)
	}
	return nil
}

// mergeRequired raises the conflict payload for the human-mediated
// resolution step. No store state is mutated before this raise.
func (s *Service) mergeRequired(ctx context.Context, credentialMine, credentialAttach domain.Credential, accountMine, accountAttach, gamespace string) error {
	resolveToken, err := s.deps.Signer.SignResolveToken(credentialMine, gamespace, s.deps.ResolveTokenTTL)
	if err != nil {
		return domain.NewAccountError("sign resolve token", err)
	}

	profiles, err := s.deps.Social.MassProfiles(ctx, gamespace, []string{accountMine, accountAttach})
	if err != nil {
		logger.Warnf("mass_profiles failed assembling merge_required payload: %v", err)
		profiles = map[string]map[string]interface{}{}
	}

	local := domain.AccountSummary{Account: accountMine, Credential: credentialMine.String(), Profile: profiles[accountMine]}
	remote := domain.AccountSummary{Account: accountAttach, Credential: credentialAttach.String(), Profile: profiles[accountAttach]}
	return domain.MergeRequired(resolveToken, local, remote)
}

// summarize builds the public account summaries used in a
// multiple_accounts_attached payload, fetching public profiles in one batch.
func (s *Service) summarize(ctx context.Context, gamespace string, accounts []string, credential *domain.Credential) ([]domain.AccountSummary, error) {
	profiles, err := s.deps.Social.MassProfiles(ctx, gamespace, accounts)
	if err != nil {
		logger.Warnf("mass_profiles failed assembling conflict payload: %v", err)
		profiles = map[string]map[string]interface{}{}
	}
	out := make([]domain.AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		summary := domain.AccountSummary{Account: a, Profile: profiles[a]}
		if credential != nil {
			summary.Credential = credential.String()
		}
		out = append(out, summary)
	}
	return out, nil
}

// proceedAuthentication resolves scopes and mints the final token. It is the
// shared tail of authorize, attach_account and resolve_conflict.
func (s *Service) proceedAuthentication(ctx context.Context, account string, credential domain.Credential, gamespaceID string, requestedScopes []string, args domain.RequestArgs, env domain.RequestEnv) (domain.AuthResponse, error) {
	authenticator, ok := s.deps.Authenticators.Lookup(credential.Type)
	if !ok {
		return domain.AuthResponse{}, domain.UnknownCredential(credential.Type)
	}

	name := domain.DefaultTokenName
	if as, ok := args["as"]; ok && as != "" {
		if !tokenNamePattern.MatchString(as) {
			return domain.AuthResponse{}, domain.BadAuthAs(as)
		}
		name = as
	}

	fetchProfile := args["import_profile"] != "false"
	if authenticator.SocialProfile() {
		if _, err := s.deps.Social.AttachAccount(ctx, gamespaceID, credential, account, env, fetchProfile); err != nil {
			logger.Warnf("social attach_account failed for account %s, continuing: %v", account, err)
		}
	}

	accountScopes, err := s.deps.Scopes.AccountScopes(ctx, gamespaceID, account)
	if err != nil {
		return domain.AuthResponse{}, domain.NewAccountError("fetch account scopes", err)
	}
	gamespaceScopes, err := s.deps.Scopes.GamespaceScopes(ctx, gamespaceID)
	if err != nil {
		return domain.AuthResponse{}, domain.NewAccountError("fetch gamespace scopes", err)
	}
	userScopes := unionStrings(accountScopes, gamespaceScopes)

	shouldHave, shouldHaveAll := parseShouldHave(args["should_have"])

	allowed := make([]string, 0, len(requestedScopes))
	for _, scope := range requestedScopes {
		if containsString(userScopes, scope) {
			allowed = append(allowed, scope)
			continue
		}
		if shouldHaveAll || containsString(shouldHave, scope) {
			return domain.AuthResponse{}, domain.ScopeRestricted(scope)
		}
	}

	unique := args["unique"] != "false"
	if !unique && !containsString(userScopes, domain.ScopeAuthNonUnique) {
		return domain.AuthResponse{}, domain.NonUniqueTokenRestricted()
	}

	if raw, ok := args["info"]; ok && raw != "" {
		var patch map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &patch); err != nil {
			return domain.AuthResponse{}, domain.BadAccountInfo()
		}
		if err := s.deps.Accounts.UpdateInfo(ctx, account, patch); err != nil {
			return domain.AuthResponse{}, domain.NewAccountError("update account info", err)
		}
	}

	tokenUUID := uuid.NewString()
	expiresAt := time.Now().Add(s.deps.AccessTokenTTL)

	token := domain.AccessToken{
		UUID:       tokenUUID,
		Account:    account,
		Gamespace:  gamespaceID,
		Credential: credential,
		Scopes:     allowed,
		Unique:     unique,
		ExpiresAt:  expiresAt,
	}

	signed, err := s.deps.Signer.Sign(token)
	if err != nil {
		return domain.AuthResponse{}, domain.NewAccountError("sign access token", err)
	}

	if unique {
		if err := s.deps.Tokens.Save(ctx, account, tokenUUID, expiresAt, name); err != nil {
			return domain.AuthResponse{}, domain.NewAccountError("save token", err)
		}
	}

	if authenticator.SocialProfile() {
		info, ierr := s.deps.Accounts.GetInfo(ctx, account)
		if ierr != nil {
			logger.Warnf("failed to load account info for profile push: %v", ierr)
		} else if err := s.deps.Social.UpdateProfile(ctx, gamespaceID, account, info); err != nil {
			logger.Warnf("update_profile failed for account %s, continuing: %v", account, err)
		}
	}

	return domain.AuthResponse{
		Token:      signed,
		Account:    account,
		Credential: credential.String(),
		Scopes:     allowed,
	}, nil
}

func (s *Service) resolveGamespace(ctx context.Context, args domain.RequestArgs) (string, error) {
	if id, ok := args["gamespace_id"]; ok && id != "" {
		return id, nil
	}
	name, ok := args["gamespace"]
	if !ok || name == "" {
		return "", domain.MissingArgument("gamespace")
	}
	id, found, err := s.deps.Gamespaces.Resolve(ctx, name)
	if err != nil {
		return "", domain.NewAccountError("resolve gamespace", err)
	}
	if !found {
		return "", domain.NoSuchGamespace(name)
	}
	return id, nil
}

// withCredentialLock serializes two concurrent authorizations racing on the
// same previously-unknown credential, so they cannot both create a fresh
// account. This is supplementary to the single transactional handle each
// request already uses.
func (s *Service) withCredentialLock(ctx context.Context, credential domain.Credential, fn func(context.Context) error) error {
	if s.deps.Locker == nil {
		return fn(ctx)
	}
	key := "credential:" + credential.String()
	if err := s.deps.Locker.Lock(ctx, key, lockTTL); err != nil {
		return domain.NewAccountError("acquire credential lock", err)
	}
	defer func() {
		if err := s.deps.Locker.Unlock(ctx, key); err != nil {
			logger.Warnf("failed to release credential lock for %s: %v", credential, err)
		}
	}()
	return fn(ctx)
}

func remapAuthenticatorError(err error) error {
	if ae, ok := err.(*domain.AuthenticatorError); ok {
		return domain.NewAuthenticationError(403, ae.Message, map[string]interface{}{"error": ae.Code})
	}
	return domain.NewAccountError("authenticator failure", err)
}

func requireScopes(args domain.RequestArgs) ([]string, error) {
	raw, ok := args["scopes"]
	if !ok || raw == "" {
		return nil, domain.MissingArgument("scopes")
	}
	return splitCSV(raw), nil
}

func parseShouldHave(raw string) (list []string, wildcard bool) {
	if raw == "*" {
		return nil, true
	}
	if raw == "" {
		return nil, false
	}
	return splitCSV(raw), false
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

var _ domain.AccountService = (*Service)(nil)
