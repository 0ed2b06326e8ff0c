package provider

import "github.com/jonwraymond/agentauth/auth"

// Stable result codes. Collaborators branch on these strings; they never
// change meaning.
const (
	CodeInvalidCredentials   = "invalid_credentials"
	CodeNewPasswordRequired  = "new_password_required"
	CodeMFARequired          = "mfa_required"
	CodeChallengeUnsupported = "challenge_unsupported"
	CodeNotConfigured        = "not_configured"
	CodeProviderError        = "provider_error"
)

// Result is the uniform outcome of authenticate and refresh operations.
// Challenges are unsuccessful results with a stable Code, not errors.
type Result struct {
	// Success reports a completed authentication with tokens present.
	Success bool

	// Code is the stable failure or challenge code when Success is false.
	Code string

	// Message is a human-readable, non-sensitive explanation.
	Message string

	// Principal is set on success.
	Principal *auth.Principal

	// Tokens, set on success. ExpiresIn is seconds until the access token
	// expires.
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int64

	// Challenge details, set when Code is a challenge code. Session is
	// the opaque continuation token the vendor expects back.
	ChallengeName       string
	ChallengeSession    string
	ChallengeParameters map[string]string
}

// Succeeded creates a successful result.
func Succeeded(principal *auth.Principal) *Result {
	return &Result{Success: true, Principal: principal}
}

// Failed creates an unsuccessful result with a stable code.
func Failed(code, message string) *Result {
	return &Result{Code: code, Message: message}
}

// IsChallenge reports whether the result asks the caller to continue an
// authentication challenge.
func (r *Result) IsChallenge() bool {
	switch r.Code {
	case CodeNewPasswordRequired, CodeMFARequired, CodeChallengeUnsupported:
		return true
	default:
		return false
	}
}
