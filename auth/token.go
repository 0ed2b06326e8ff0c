package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DecodedToken is the parsed form of a compact JWT.
// Valid is set only after the full validation pipeline completes.
type DecodedToken struct {
	// Header is the decoded JOSE header.
	Header map[string]any

	// Claims is the decoded payload.
	Claims map[string]any

	// SignatureSegment is the raw (still encoded) third segment.
	SignatureSegment string

	// Issuer is the iss claim, empty if absent.
	Issuer string

	// Audience is the aud claim, normalized to a slice.
	Audience []string

	// Subject is the sub claim, empty if absent.
	Subject string

	// IssuedAt is the iat claim. Missing iat defaults to the Unix epoch.
	IssuedAt time.Time

	// ExpiresAt is the exp claim. Missing exp defaults to the Unix epoch,
	// which means the token is already expired.
	ExpiresAt time.Time

	// Valid reports whether the token passed signature, audience, and
	// expiry checks. Never set speculatively.
	Valid bool
}

// KeyID returns the kid header value, or empty string if absent.
func (t *DecodedToken) KeyID() string {
	kid, _ := t.Header["kid"].(string)
	return kid
}

// HasAudience reports whether the token's aud claim contains target.
func (t *DecodedToken) HasAudience(target string) bool {
	for _, aud := range t.Audience {
		if aud == target {
			return true
		}
	}
	return false
}

// StringClaim returns a claim as a string, or empty string if absent or
// not a string.
func (t *DecodedToken) StringClaim(name string) string {
	s, _ := t.Claims[name].(string)
	return s
}

// Decode parses a compact JWT without verifying its signature.
// It fails with ErrTokenFormat unless the token splits into exactly three
// dot-separated segments and both header and payload decode.
func Decode(raw string) (*DecodedToken, error) {
	raw = strings.TrimSpace(raw)

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, validationErr("decode", ErrTokenFormat)
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, validationErr("decode", ErrTokenFormat)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, validationErr("decode", ErrTokenFormat)
	}

	decoded := &DecodedToken{
		Header:           token.Header,
		Claims:           map[string]any(claims),
		SignatureSegment: parts[2],
		IssuedAt:         time.Unix(0, 0),
		ExpiresAt:        time.Unix(0, 0),
	}

	if iss, ok := claims["iss"].(string); ok {
		decoded.Issuer = iss
	}
	if sub, ok := claims["sub"].(string); ok {
		decoded.Subject = sub
	}
	decoded.Audience = audienceClaim(claims)

	if iat, ok := claims["iat"].(float64); ok {
		decoded.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := claims["exp"].(float64); ok {
		decoded.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return decoded, nil
}

// audienceClaim normalizes the aud claim, which may be a string or a list.
func audienceClaim(claims jwt.MapClaims) []string {
	switch v := claims["aud"].(type) {
	case string:
		return []string{v}
	case []any:
		result := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}
