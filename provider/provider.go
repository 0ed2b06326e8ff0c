package provider

import (
	"context"
	"errors"

	"github.com/jonwraymond/agentauth/auth"
)

// Type identifies an identity provider vendor.
type Type string

// Known provider types. Only TypeCognito has a registered factory; the
// others are declared extension points.
const (
	TypeCognito Type = "cognito"
	TypeOkta    Type = "okta"
	TypeAuth0   Type = "auth0"
	TypeAzureAD Type = "azure-ad"
)

// TokenUse distinguishes the token kinds a provider issues.
type TokenUse string

const (
	TokenUseAccess TokenUse = "access"
	TokenUseID     TokenUse = "id"
)

// Sentinel errors for providers.
var (
	ErrNotConfigured   = errors.New("provider: not configured")
	ErrNotInitialized  = errors.New("provider: not initialized")
	ErrUnknownProvider = errors.New("provider: unknown provider type")
)

// Config carries the connection parameters for a provider.
// Immutable once handed to a factory.
type Config struct {
	Type         Type
	ClientID     string
	ClientSecret string
	PoolID       string
	Region       string
	Scopes       []string

	// Issuer overrides the derived issuer URL. Used by tests and
	// non-standard deployments.
	Issuer string
}

// IdentityProvider is the capability set every identity vendor implements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: all calls honor cancellation/deadlines.
// - Errors: expected challenge outcomes are unsuccessful Results, not
//   errors; errors mean the provider itself failed.
type IdentityProvider interface {
	// Initialize prepares the provider for use. Idempotent.
	Initialize(ctx context.Context) error

	// Authenticate verifies user credentials.
	Authenticate(ctx context.Context, username, password string) (*Result, error)

	// ValidateToken verifies a raw token of the given use and returns the
	// decoded token with Valid set.
	ValidateToken(ctx context.Context, raw string, use TokenUse) (*auth.DecodedToken, error)

	// RefreshToken exchanges a refresh token for fresh tokens.
	RefreshToken(ctx context.Context, refreshToken string) (*Result, error)

	// Logout invalidates the session behind an access token.
	Logout(ctx context.Context, accessToken string) error

	// GetUserInfo resolves an access token to its principal.
	GetUserInfo(ctx context.Context, accessToken string) (*auth.Principal, error)

	// GetJWKS returns the raw JWKS document for the provider's issuer.
	GetJWKS(ctx context.Context) ([]byte, error)

	// Name returns the provider type name.
	Name() string

	// IsConfigured reports whether required connection parameters are set.
	IsConfigured() bool
}
