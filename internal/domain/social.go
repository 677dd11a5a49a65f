package domain

import "context"

// SocialImportError is returned by SocialBridge.ImportSocial, distinguishing
// a protocol-level failure reported by the social service itself
// (Discovery=false, fatal to the request) from a failure to even
// discover/reach the social service (Discovery=true, logged and ignored).
type SocialImportError struct {
	Code      int
	Message   string
	Discovery bool
}

func (e *SocialImportError) Error() string { return e.Message }

// SocialBridge is the out-of-process collaborator for social-profile side
// effects. Every call here is fire-and-forget from the caller's perspective:
// failures during import_social, attach_account's profile fetch and
// update_profile are logged and swallowed; only mass_profiles failures during
// conflict-payload assembly fall back to an empty profile map (still not
// fatal) and failed_to_import_social is reserved for a protocol-level
// internal error surfaced during import (a *SocialImportError with
// Discovery=false).
type SocialBridge interface {
	// ImportSocial kicks off a social graph import for a freshly authorized credential.
	ImportSocial(ctx context.Context, gamespace string, credential Credential, username string, auth map[string]interface{}) error
	// AttachAccount fetches profile data for a credential now bound to account.
	AttachAccount(ctx context.Context, gamespace string, credential Credential, account string, env RequestEnv, fetchProfile bool) (map[string]interface{}, error)
	// UpdateProfile pushes account-info fields to the profile service after a successful authentication.
	UpdateProfile(ctx context.Context, gamespaceID, account string, fields map[string]interface{}) error
	// MassProfiles fetches public profiles for a batch of accounts, used when
	// assembling a conflict payload.
	MassProfiles(ctx context.Context, gamespace string, accounts []string) (map[string]map[string]interface{}, error)
}
