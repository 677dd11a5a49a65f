package domain

import "fmt"

// AuthenticationError is the user-visible error family. Code is an HTTP-style
// status (300 and 409 are used for conflict flows that carry actionable
// payloads -- they are successful protocol outcomes, not service failures).
type AuthenticationError struct {
	Code     int
	ResultID string
	Fields   map[string]interface{}
}

func NewAuthenticationError(code int, resultID string, fields map[string]interface{}) *AuthenticationError {
	return &AuthenticationError{Code: code, ResultID: resultID, Fields: fields}
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error %s (code %d)", e.ResultID, e.Code)
}

// WithField returns a copy of the error with an additional field set.
func (e *AuthenticationError) WithField(key string, value interface{}) *AuthenticationError {
	fields := make(map[string]interface{}, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[key] = value
	return &AuthenticationError{Code: e.Code, ResultID: e.ResultID, Fields: fields}
}

// Result-id constants from the external interface contract.
const (
	ResultMissingArgument          = "missing_argument"
	ResultUnknownCredential        = "unknown_credential"
	ResultNoSuchGamespace          = "no_such_gamespace"
	ResultWrongGamespace           = "wrong_gamespace"
	ResultAccessTokenInvalid       = "access_token_invalid"
	ResultAttachToTokenInvalid     = "attach_to_token_invalid"
	ResultBadAuthAs                = "bad_auth_as"
	ResultBadAccountInfo           = "bad_account_info"
	ResultScopeRestricted          = "scope_restricted"
	ResultNonUniqueTokenRestricted = "non_unique_token_restricted"
	ResultMergeRequired            = "merge_required"
	ResultMultipleAccountsAttached = "multiple_accounts_attached"
	ResultUnknownMergeOption       = "unknown_merge_option"
	ResultCannotResolveConflict    = "cannot_resolve_conflict"
	ResultBadResolveMethod         = "bad_resolve_method"
	ResultFailedToImportSocial     = "failed_to_import_social"
	ResultInternalError            = "internal_error"
)

func missingArgument(name string) *AuthenticationError {
	return NewAuthenticationError(400, ResultMissingArgument, map[string]interface{}{"argument": name})
}

// MissingArgument builds the standard missing_argument error for a request field.
func MissingArgument(name string) *AuthenticationError { return missingArgument(name) }

func UnknownCredential(credentialType string) *AuthenticationError {
	return NewAuthenticationError(404, ResultUnknownCredential, map[string]interface{}{"credential": credentialType})
}

func NoSuchGamespace(gamespace string) *AuthenticationError {
	return NewAuthenticationError(404, ResultNoSuchGamespace, map[string]interface{}{"gamespace": gamespace})
}

func WrongGamespace() *AuthenticationError {
	return NewAuthenticationError(409, ResultWrongGamespace, nil)
}

func AccessTokenInvalid(reason string) *AuthenticationError {
	return NewAuthenticationError(403, ResultAccessTokenInvalid, map[string]interface{}{"error": reason})
}

func AttachToTokenInvalid(reason string) *AuthenticationError {
	return NewAuthenticationError(403, ResultAttachToTokenInvalid, map[string]interface{}{"error": reason})
}

func BadAuthAs(name string) *AuthenticationError {
	return NewAuthenticationError(400, ResultBadAuthAs, map[string]interface{}{"as": name})
}

func BadAccountInfo() *AuthenticationError {
	return NewAuthenticationError(400, ResultBadAccountInfo, nil)
}

func ScopeRestricted(scope string) *AuthenticationError {
	return NewAuthenticationError(403, ResultScopeRestricted, map[string]interface{}{"scope": scope})
}

func NonUniqueTokenRestricted() *AuthenticationError {
	return NewAuthenticationError(403, ResultNonUniqueTokenRestricted, nil)
}

func UnknownMergeOption(option string) *AuthenticationError {
	return NewAuthenticationError(400, ResultUnknownMergeOption, map[string]interface{}{"resolve_with": option})
}

func CannotResolveConflict() *AuthenticationError {
	return NewAuthenticationError(409, ResultCannotResolveConflict, nil)
}

func BadResolveMethod(method string) *AuthenticationError {
	return NewAuthenticationError(400, ResultBadResolveMethod, map[string]interface{}{"method": method})
}

func FailedToImportSocial(reason string) *AuthenticationError {
	return NewAuthenticationError(500, ResultFailedToImportSocial, map[string]interface{}{"error": reason})
}

// MultipleAccountsAttached is raised both by the resolver (300, carries the
// candidate set) and by the merge state machine (409, no candidates to pick
// from because the caller already named a specific target).
func MultipleAccountsAttached(code int, accounts []AccountSummary) *AuthenticationError {
	return NewAuthenticationError(code, ResultMultipleAccountsAttached, map[string]interface{}{"accounts": accounts})
}

// MergeRequired carries a resolve token and the local/remote candidate summaries.
func MergeRequired(resolveToken string, local, remote AccountSummary) *AuthenticationError {
	return NewAuthenticationError(409, ResultMergeRequired, map[string]interface{}{
		"resolve_token": resolveToken,
		"accounts": map[string]AccountSummary{
			"local":  local,
			"remote": remote,
		},
	})
}

// AccountSummary is the public shape surfaced for a conflicting account.
type AccountSummary struct {
	Account    string                 `json:"account"`
	Credential string                 `json:"credential,omitempty"`
	Profile    map[string]interface{} `json:"profile,omitempty"`
}

// AccountError is the internal/storage failure family: it wraps a driver
// error and is never resolvable by a protocol-level retry. The transport
// surfaces it as a 5xx.
type AccountError struct {
	Message string
	Cause   error
}

func NewAccountError(message string, cause error) *AccountError {
	return &AccountError{Message: message, Cause: cause}
}

func (e *AccountError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AccountError) Unwrap() error { return e.Cause }
