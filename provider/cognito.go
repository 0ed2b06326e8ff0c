package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"

	"github.com/jonwraymond/agentauth/auth"
	"github.com/jonwraymond/agentauth/observe"
)

// CognitoAuthAPI is the subset of the Cognito Identity Provider client used
// by the provider. Narrowed for fakes in tests.
type CognitoAuthAPI interface {
	AdminInitiateAuthWithContext(ctx aws.Context, input *cognitoidentityprovider.AdminInitiateAuthInput, opts ...request.Option) (*cognitoidentityprovider.AdminInitiateAuthOutput, error)
	GlobalSignOutWithContext(ctx aws.Context, input *cognitoidentityprovider.GlobalSignOutInput, opts ...request.Option) (*cognitoidentityprovider.GlobalSignOutOutput, error)
	GetUserWithContext(ctx aws.Context, input *cognitoidentityprovider.GetUserInput, opts ...request.Option) (*cognitoidentityprovider.GetUserOutput, error)
}

// CognitoConfig configures the Cognito identity provider.
type CognitoConfig struct {
	Config

	// API overrides the Cognito client. Used by tests.
	API CognitoAuthAPI

	// HTTPClient is used for JWKS fetches. If nil, a default client is used.
	HTTPClient *http.Client

	// Logger receives provider diagnostics. Default: discard.
	Logger observe.Logger
}

// CognitoProvider implements IdentityProvider against an AWS Cognito user
// pool using administrator-initiated auth.
//
// Cognito access tokens carry no aud claim, so audience checking is
// skipped during verification and the client_id claim is cross-checked
// against the configured app client instead. The token_use claim must
// match the requested token kind.
type CognitoProvider struct {
	config CognitoConfig
	issuer string
	logger observe.Logger

	mu          sync.Mutex
	api         CognitoAuthAPI
	keySets     *auth.JWKSCache
	validator   *auth.Validator
	initialized bool
}

// NewCognitoProvider creates a Cognito identity provider.
// Construction never fails for missing pool parameters; IsConfigured and
// Initialize report that state so the host can degrade gracefully.
func NewCognitoProvider(config CognitoConfig) (*CognitoProvider, error) {
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	issuer := config.Issuer
	if issuer == "" && config.Region != "" && config.PoolID != "" {
		issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", config.Region, config.PoolID)
	}

	return &CognitoProvider{
		config: config,
		issuer: issuer,
		logger: config.Logger,
		api:    config.API,
	}, nil
}

// Name returns "cognito".
func (p *CognitoProvider) Name() string {
	return string(TypeCognito)
}

// IsConfigured reports whether pool id, client id, and an issuer are known.
func (p *CognitoProvider) IsConfigured() bool {
	return p.config.PoolID != "" && p.config.ClientID != "" && p.issuer != ""
}

// Issuer returns the token issuer URL for this pool.
func (p *CognitoProvider) Issuer() string {
	return p.issuer
}

// Initialize builds the AWS client and the JWKS verification chain.
// Idempotent; fails with ErrNotConfigured when parameters are missing.
func (p *CognitoProvider) Initialize(_ context.Context) error {
	if !p.IsConfigured() {
		return ErrNotConfigured
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	if p.api == nil {
		awsCfg := aws.NewConfig()
		if p.config.Region != "" {
			awsCfg = awsCfg.WithRegion(p.config.Region)
		}
		sess, err := session.NewSession(awsCfg)
		if err != nil {
			return fmt.Errorf("create AWS session: %w", err)
		}
		p.api = cognitoidentityprovider.New(sess)
	}

	// The provider keeps its own key-set cache for its single issuer.
	p.keySets = auth.NewJWKSCache(auth.JWKSConfig{
		HTTPClient: p.config.HTTPClient,
	})
	p.validator = auth.NewValidator(auth.ValidatorConfig{KeySets: p.keySets})

	p.initialized = true
	return nil
}

// Authenticate runs the admin-initiated password flow. Challenge states
// come back as unsuccessful results with stable codes.
func (p *CognitoProvider) Authenticate(ctx context.Context, username, password string) (*Result, error) {
	if err := p.ensureInitialized(); err != nil {
		return Failed(CodeNotConfigured, "provider is not configured"), nil
	}

	params := map[string]*string{
		"USERNAME": aws.String(username),
		"PASSWORD": aws.String(password),
	}
	if p.config.ClientSecret != "" {
		params["SECRET_HASH"] = aws.String(p.secretHash(username))
	}

	out, err := p.api.AdminInitiateAuthWithContext(ctx, &cognitoidentityprovider.AdminInitiateAuthInput{
		AuthFlow:       aws.String(cognitoidentityprovider.AuthFlowTypeAdminUserPasswordAuth),
		ClientId:       aws.String(p.config.ClientID),
		UserPoolId:     aws.String(p.config.PoolID),
		AuthParameters: params,
	})
	if err != nil {
		if isCredentialErr(err) {
			return Failed(CodeInvalidCredentials, "invalid username or password"), nil
		}
		return nil, fmt.Errorf("initiate auth: %w", err)
	}

	if out.ChallengeName != nil {
		return p.challengeResult(out), nil
	}

	return p.resultFromTokens(ctx, out.AuthenticationResult)
}

// RefreshToken exchanges a refresh token through the admin flow.
func (p *CognitoProvider) RefreshToken(ctx context.Context, refreshToken string) (*Result, error) {
	if err := p.ensureInitialized(); err != nil {
		return Failed(CodeNotConfigured, "provider is not configured"), nil
	}

	out, err := p.api.AdminInitiateAuthWithContext(ctx, &cognitoidentityprovider.AdminInitiateAuthInput{
		AuthFlow:   aws.String(cognitoidentityprovider.AuthFlowTypeRefreshTokenAuth),
		ClientId:   aws.String(p.config.ClientID),
		UserPoolId: aws.String(p.config.PoolID),
		AuthParameters: map[string]*string{
			"REFRESH_TOKEN": aws.String(refreshToken),
		},
	})
	if err != nil {
		if isCredentialErr(err) {
			return Failed(CodeInvalidCredentials, "refresh token rejected"), nil
		}
		return nil, fmt.Errorf("refresh auth: %w", err)
	}

	result, err := p.resultFromTokens(ctx, out.AuthenticationResult)
	if err != nil {
		return nil, err
	}
	// Cognito does not rotate the refresh token on this flow
	if result.Success && result.RefreshToken == "" {
		result.RefreshToken = refreshToken
	}
	return result, nil
}

// ValidateToken verifies a raw token. Audience checking is skipped; the
// client_id claim and token_use claim are checked instead.
func (p *CognitoProvider) ValidateToken(ctx context.Context, raw string, use TokenUse) (*auth.DecodedToken, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	token, err := p.validator.Validate(ctx, raw, "")
	if err != nil {
		return nil, err
	}

	if token.Issuer != p.issuer {
		return nil, &auth.TokenValidationError{Stage: "issuer", Err: auth.ErrInvalidToken}
	}

	switch use {
	case TokenUseID:
		// ID tokens carry the app client in aud
		if !token.HasAudience(p.config.ClientID) {
			return nil, &auth.TokenValidationError{Stage: "audience", Err: auth.ErrAudienceMismatch}
		}
	default:
		// Access tokens carry it in client_id
		if token.StringClaim("client_id") != p.config.ClientID {
			return nil, &auth.TokenValidationError{Stage: "audience", Err: auth.ErrAudienceMismatch}
		}
	}

	if got := token.StringClaim("token_use"); got != string(use) {
		return nil, &auth.TokenValidationError{Stage: "token_use", Err: auth.ErrInvalidToken}
	}

	return token, nil
}

// Logout revokes the session behind an access token.
func (p *CognitoProvider) Logout(ctx context.Context, accessToken string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	_, err := p.api.GlobalSignOutWithContext(ctx, &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return fmt.Errorf("global sign out: %w", err)
	}
	return nil
}

// GetUserInfo validates the access token and enriches the principal with
// pool attributes.
func (p *CognitoProvider) GetUserInfo(ctx context.Context, accessToken string) (*auth.Principal, error) {
	token, err := p.ValidateToken(ctx, accessToken, TokenUseAccess)
	if err != nil {
		return nil, err
	}

	principal := auth.PrincipalFromToken(token)

	out, err := p.api.GetUserWithContext(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		// Attributes are enrichment only; the validated token stands
		p.logger.Warn(ctx, "get user attributes failed",
			observe.Field{Key: "provider", Value: p.Name()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return principal, nil
	}

	if out.Username != nil && principal.Username == "" {
		principal.Username = *out.Username
	}
	for _, attr := range out.UserAttributes {
		name := aws.StringValue(attr.Name)
		value := aws.StringValue(attr.Value)
		if name == "" {
			continue
		}
		if name == "email" && principal.Email == "" {
			principal.Email = value
		}
		principal.Attributes[name] = value
	}

	return principal, nil
}

// GetJWKS returns the raw JWKS document for the pool's issuer, using the
// provider's own cache.
func (p *CognitoProvider) GetJWKS(ctx context.Context) ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	return p.keySets.Document(ctx, p.issuer)
}

func (p *CognitoProvider) ensureInitialized() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return ErrNotInitialized
	}
	return nil
}

// resultFromTokens validates the issued access token and assembles a
// successful result.
func (p *CognitoProvider) resultFromTokens(ctx context.Context, tokens *cognitoidentityprovider.AuthenticationResultType) (*Result, error) {
	if tokens == nil || tokens.AccessToken == nil {
		return Failed(CodeProviderError, "authentication returned no tokens"), nil
	}

	decoded, err := p.ValidateToken(ctx, *tokens.AccessToken, TokenUseAccess)
	if err != nil {
		return nil, fmt.Errorf("validate issued token: %w", err)
	}

	result := Succeeded(auth.PrincipalFromToken(decoded))
	result.AccessToken = *tokens.AccessToken
	result.IDToken = aws.StringValue(tokens.IdToken)
	result.RefreshToken = aws.StringValue(tokens.RefreshToken)
	result.ExpiresIn = aws.Int64Value(tokens.ExpiresIn)
	return result, nil
}

// challengeResult maps a Cognito challenge to a stable unsuccessful result.
func (p *CognitoProvider) challengeResult(out *cognitoidentityprovider.AdminInitiateAuthOutput) *Result {
	name := aws.StringValue(out.ChallengeName)

	var code, message string
	switch name {
	case cognitoidentityprovider.ChallengeNameTypeNewPasswordRequired:
		code = CodeNewPasswordRequired
		message = "a new password must be set before signing in"
	case cognitoidentityprovider.ChallengeNameTypeSmsMfa,
		cognitoidentityprovider.ChallengeNameTypeSoftwareTokenMfa:
		code = CodeMFARequired
		message = "multi-factor verification required"
	default:
		code = CodeChallengeUnsupported
		message = "authentication challenge not supported"
	}

	result := Failed(code, message)
	result.ChallengeName = name
	result.ChallengeSession = aws.StringValue(out.Session)
	if len(out.ChallengeParameters) > 0 {
		result.ChallengeParameters = make(map[string]string, len(out.ChallengeParameters))
		for k, v := range out.ChallengeParameters {
			result.ChallengeParameters[k] = aws.StringValue(v)
		}
	}
	return result
}

// secretHash computes the HMAC-SHA256 Cognito expects when the app client
// has a secret: Base64(HMAC(clientSecret, username + clientID)).
func (p *CognitoProvider) secretHash(username string) string {
	mac := hmac.New(sha256.New, []byte(p.config.ClientSecret))
	mac.Write([]byte(username + p.config.ClientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// isCredentialErr reports whether an AWS error means bad credentials
// rather than a provider failure.
func isCredentialErr(err error) bool {
	var awsErr awserr.Error
	if !errors.As(err, &awsErr) {
		return false
	}
	switch awsErr.Code() {
	case cognitoidentityprovider.ErrCodeNotAuthorizedException,
		cognitoidentityprovider.ErrCodeUserNotFoundException,
		cognitoidentityprovider.ErrCodePasswordResetRequiredException,
		cognitoidentityprovider.ErrCodeUserNotConfirmedException:
		return true
	default:
		return false
	}
}

// Ensure CognitoProvider implements IdentityProvider
var _ IdentityProvider = (*CognitoProvider)(nil)
