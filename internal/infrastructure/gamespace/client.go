package gamespace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthill/accountsvc/internal/domain"
	natssvc "github.com/anthill/accountsvc/pkg/nats"
)

const requestTimeout = 5 * time.Second

// Client implements both domain.GamespaceCatalog and domain.ScopeResolver as
// NATS request-reply calls against the external gamespace/scope catalog
// service. Unlike SocialBridge, failures here are fatal to the request: a
// missing gamespace or a broken access check must stop authentication.
type Client struct {
	conn natssvc.Service
}

func NewClient(conn natssvc.Service) *Client {
	return &Client{conn: conn}
}

func (c *Client) Resolve(ctx context.Context, name string) (string, bool, error) {
	msg, err := c.conn.Request("gamespace.resolve", map[string]string{"name": name}, requestTimeout)
	if err != nil {
		return "", false, fmt.Errorf("gamespace.resolve: %w", err)
	}
	var resp struct {
		ID    string `json:"id"`
		Found bool   `json:"found"`
	}
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return "", false, fmt.Errorf("gamespace.resolve: malformed response: %w", err)
	}
	return resp.ID, resp.Found, nil
}

// AccountScopes returns the empty set, not an error, when the account has no
// recorded grants -- mirroring the NoScopesFound case the merge protocol
// treats as "nothing granted" rather than a failure.
func (c *Client) AccountScopes(ctx context.Context, gamespace, account string) ([]string, error) {
	req := map[string]string{"gamespace": gamespace, "account": account}
	msg, err := c.conn.Request("access.get_account_access", req, requestTimeout)
	if err != nil {
		return nil, fmt.Errorf("access.get_account_access: %w", err)
	}
	var resp struct {
		Scopes []string `json:"scopes"`
		Found  bool     `json:"found"`
	}
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("access.get_account_access: malformed response: %w", err)
	}
	if !resp.Found {
		return []string{}, nil
	}
	return resp.Scopes, nil
}

func (c *Client) GamespaceScopes(ctx context.Context, gamespace string) ([]string, error) {
	msg, err := c.conn.Request("gamespace.get_gamespace_access_scopes", map[string]string{"gamespace": gamespace}, requestTimeout)
	if err != nil {
		return nil, fmt.Errorf("gamespace.get_gamespace_access_scopes: %w", err)
	}
	var resp struct {
		Scopes []string `json:"scopes"`
	}
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("gamespace.get_gamespace_access_scopes: malformed response: %w", err)
	}
	return resp.Scopes, nil
}

var (
	_ domain.GamespaceCatalog = (*Client)(nil)
	_ domain.ScopeResolver    = (*Client)(nil)
)
