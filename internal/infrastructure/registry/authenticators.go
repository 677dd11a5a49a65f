package registry

import (
	"context"

	"github.com/anthill/accountsvc/internal/domain"
)

// localAuthenticator backs the two reserved "local" credential types,
// anonymous and dev: no external verification, just a caller-supplied
// username accepted as-is. They never carry a social profile to import.
type localAuthenticator struct {
	credentialType string
}

// NewAnonymousAuthenticator accepts any caller-supplied "username" as a
// device-scoped guest identity.
func NewAnonymousAuthenticator() domain.Authenticator {
	return &localAuthenticator{credentialType: "anonymous"}
}

// NewDevAuthenticator is the trusted, unverified login path used by
// development and test clients.
func NewDevAuthenticator() domain.Authenticator {
	return &localAuthenticator{credentialType: "dev"}
}

func (a *localAuthenticator) Type() string        { return a.credentialType }
func (a *localAuthenticator) SocialProfile() bool  { return false }

func (a *localAuthenticator) Authorize(ctx context.Context, gamespace string, args domain.RequestArgs, env domain.RequestEnv) (domain.AuthResult, error) {
	username, ok := args["username"]
	if !ok || username == "" {
		return domain.AuthResult{}, &domain.AuthenticatorError{Code: "missing_argument", Message: "missing username"}
	}
	return domain.AuthResult{
		CredentialType: a.credentialType,
		Username:       username,
		Response:       map[string]interface{}{},
	}, nil
}

var _ domain.Authenticator = (*localAuthenticator)(nil)
