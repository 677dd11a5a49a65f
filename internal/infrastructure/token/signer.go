package token

import (
	"fmt"
	"time"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessClaims is the JWT claim shape for both access tokens and resolve
// tokens. ACCOUNT/GAMESPACE/ISSUER mirror the payload names from the
// external protocol; resolve tokens omit ACCOUNT entirely.
type accessClaims struct {
	jwt.RegisteredClaims
	Account    string   `json:"ACCOUNT,omitempty"`
	Gamespace  string   `json:"GAMESPACE,omitempty"`
	Issuer     string   `json:"ISSUER,omitempty"`
	Scopes     []string `json:"scopes"`
	Credential string   `json:"credential,omitempty"`
}

// JWTSigner implements domain.TokenSigner using HMAC-signed JWTs. The
// private key is held process-wide for the lifetime of the signer.
type JWTSigner struct {
	key []byte
}

func NewJWTSigner(key []byte) *JWTSigner {
	return &JWTSigner{key: key}
}

func (s *JWTSigner) Sign(token domain.AccessToken) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.UUID,
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
		Account:   token.Account,
		Gamespace: token.Gamespace,
		Scopes:    token.Scopes,
	}
	if token.Credential.Type != "" {
		claims.Credential = token.Credential.String()
	}
	if token.Unique {
		claims.Issuer = domain.LoginIssuer
	}

	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := signed.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return raw, nil
}

func (s *JWTSigner) Verify(raw string) (domain.AccessToken, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return domain.AccessToken{}, err
	}
	token := domain.AccessToken{
		UUID:      claims.ID,
		Account:   claims.Account,
		Gamespace: claims.Gamespace,
		Scopes:    claims.Scopes,
		Issuer:    claims.Issuer,
		Unique:    claims.Issuer == domain.LoginIssuer,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.Credential != "" {
		cred, err := domain.ParseCredential(claims.Credential)
		if err != nil {
			return domain.AccessToken{}, fmt.Errorf("access token credential: %w", err)
		}
		token.Credential = cred
	}
	return token, nil
}

func (s *JWTSigner) SignResolveToken(credential domain.Credential, gamespace string, ttl time.Duration) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Gamespace:  gamespace,
		Scopes:     []string{domain.ScopeResolveConflict},
		Credential: credential.String(),
	}

	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := signed.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign resolve token: %w", err)
	}
	return raw, nil
}

func (s *JWTSigner) VerifyResolveToken(raw string) (domain.ResolveTokenClaims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return domain.ResolveTokenClaims{}, err
	}

	if !hasScope(claims.Scopes, domain.ScopeResolveConflict) {
		return domain.ResolveTokenClaims{}, fmt.Errorf("resolve token missing resolve_conflict scope")
	}
	cred, err := domain.ParseCredential(claims.Credential)
	if err != nil {
		return domain.ResolveTokenClaims{}, fmt.Errorf("resolve token credential: %w", err)
	}

	return domain.ResolveTokenClaims{
		UUID:       claims.ID,
		Credential: cred,
		Gamespace:  claims.Gamespace,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

func (s *JWTSigner) parse(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

func hasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

var _ domain.TokenSigner = (*JWTSigner)(nil)
