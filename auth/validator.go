package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ValidatorConfig configures the token validator.
type ValidatorConfig struct {
	// KeySets provides JWKS keys per issuer. Required.
	KeySets *JWKSCache

	// Now is the clock used for expiry checks. Default: time.Now.
	Now func() time.Time
}

// Validator validates JWT tokens against per-issuer JWKS key sets.
type Validator struct {
	keySets *JWKSCache
	now     func() time.Time
}

// NewValidator creates a new token validator.
func NewValidator(config ValidatorConfig) *Validator {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Validator{
		keySets: config.KeySets,
		now:     config.Now,
	}
}

// Decode parses a token. With verifySignature false it only decodes; with
// verifySignature true it runs the full validation pipeline with no
// expected audience.
func (v *Validator) Decode(ctx context.Context, raw string, verifySignature bool) (*DecodedToken, error) {
	if !verifySignature {
		return Decode(raw)
	}
	return v.Validate(ctx, raw, "")
}

// Validate runs the validation pipeline in strict order: unverified decode,
// issuer presence, JWKS key lookup by kid, RS256 signature verification,
// audience check when audience is non-empty, expiry check. The returned
// token has Valid set only when every stage passed.
func (v *Validator) Validate(ctx context.Context, raw string, audience string) (*DecodedToken, error) {
	token, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	if token.Issuer == "" {
		return nil, validationErr("issuer", ErrMissingIssuer)
	}

	kid := token.KeyID()
	if kid == "" {
		return nil, validationErr("keyset", ErrKeyNotFound)
	}

	key, err := v.keySets.Key(ctx, token.Issuer, kid)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, validationErr("keyset", ErrKeyNotFound)
		}
		return nil, validationErr("keyset", ErrKeySetFetch)
	}

	if err := verifyRS256(raw, key); err != nil {
		return nil, validationErr("signature", ErrSignatureInvalid)
	}

	if audience != "" && !token.HasAudience(audience) {
		return nil, validationErr("audience", ErrAudienceMismatch)
	}

	if v.now().After(token.ExpiresAt) {
		return nil, validationErr("expiry", ErrTokenExpired)
	}

	token.Valid = true
	return token, nil
}

// verifyRS256 checks the token signature against the given public key.
// Claim validation is deliberately disabled; audience and expiry are
// separate pipeline stages.
func verifyRS256(raw string, key *rsa.PublicKey) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.Parse(raw, func(_ *jwt.Token) (any, error) {
		return key, nil
	})
	return err
}
