package social

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/anthill/accountsvc/pkg/logger"
	natssvc "github.com/anthill/accountsvc/pkg/nats"
)

// requestTimeout bounds every outgoing RPC, per the timeout guarantee the
// concurrency model requires for cross-service calls.
const requestTimeout = 5 * time.Second

// Bridge implements domain.SocialBridge as NATS request-reply calls against
// the external social/profile service. AttachAccount and UpdateProfile log
// and swallow their failures, and MassProfiles degrades to an empty profile
// map; ImportSocial returns every failure as a *domain.SocialImportError so
// the caller can tell a discovery failure from a protocol-level one.
type Bridge struct {
	conn natssvc.Service
}

func NewBridge(conn natssvc.Service) *Bridge {
	return &Bridge{conn: conn}
}

// importSocialResponse carries an optional error payload set by the social
// service when it reached the request but failed to process it -- a
// protocol-level failure, not a discovery failure. No reply at all, or a
// reply that doesn't parse, means the social service itself could not be
// reached in the first place.
type importSocialResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b *Bridge) ImportSocial(ctx context.Context, gamespace string, credential domain.Credential, username string, auth map[string]interface{}) error {
	req := map[string]interface{}{
		"gamespace":  gamespace,
		"credential": credential.String(),
		"username":   username,
		"auth":       auth,
	}
	msg, err := b.conn.Request("social.import_social", req, requestTimeout)
	if err != nil {
		return &domain.SocialImportError{Discovery: true, Message: fmt.Sprintf("import_social: %v", err)}
	}

	var resp importSocialResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return &domain.SocialImportError{Discovery: true, Message: fmt.Sprintf("import_social: malformed response: %v", err)}
	}
	if resp.Error != nil {
		return &domain.SocialImportError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return nil
}

func (b *Bridge) AttachAccount(ctx context.Context, gamespace string, credential domain.Credential, account string, env domain.RequestEnv, fetchProfile bool) (map[string]interface{}, error) {
	if !fetchProfile {
		return nil, nil
	}
	req := map[string]interface{}{
		"gamespace":  gamespace,
		"credential": credential.String(),
		"account":    account,
		"client_ip":  env.ClientIP,
		"user_agent": env.UserAgent,
	}
	msg, err := b.conn.Request("social.attach_account", req, requestTimeout)
	if err != nil {
		logger.Warnf("social.attach_account failed for account %s: %v", account, err)
		return nil, nil
	}
	var profile map[string]interface{}
	if err := json.Unmarshal(msg.Data, &profile); err != nil {
		logger.Warnf("social.attach_account returned malformed profile: %v", err)
		return nil, nil
	}
	return profile, nil
}

func (b *Bridge) UpdateProfile(ctx context.Context, gamespaceID, account string, fields map[string]interface{}) error {
	req := map[string]interface{}{
		"gamespace_id": gamespaceID,
		"account_id":   account,
		"fields":       fields,
	}
	_, err := b.conn.Request("profile.update_profile", req, requestTimeout)
	if err != nil {
		logger.Warnf("profile.update_profile failed for account %s: %v", account, err)
	}
	return nil
}

func (b *Bridge) MassProfiles(ctx context.Context, gamespace string, accounts []string) (map[string]map[string]interface{}, error) {
	req := map[string]interface{}{
		"gamespace": gamespace,
		"accounts":  accounts,
		"action":    "get_public",
	}
	msg, err := b.conn.Request("profile.mass_profiles", req, requestTimeout)
	if err != nil {
		logger.Warnf("profile.mass_profiles failed: %v", err)
		return map[string]map[string]interface{}{}, nil
	}
	var profiles map[string]map[string]interface{}
	if err := json.Unmarshal(msg.Data, &profiles); err != nil {
		logger.Warnf("profile.mass_profiles returned malformed payload: %v", err)
		return map[string]map[string]interface{}{}, nil
	}
	return profiles, nil
}

var _ domain.SocialBridge = (*Bridge)(nil)
