package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrTokenFormat      = errors.New("auth: token format invalid")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrMissingIssuer    = errors.New("auth: token has no issuer")
	ErrKeyNotFound      = errors.New("auth: signing key not found")
	ErrSignatureInvalid = errors.New("auth: signature verification failed")
	ErrAudienceMismatch = errors.New("auth: audience mismatch")
	ErrKeySetFetch      = errors.New("auth: key set fetch failed")

	// Service errors
	ErrMissingConfig  = errors.New("auth: missing configuration")
	ErrNotInitialized = errors.New("auth: service not initialized")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)

// TokenValidationError describes why a token failed validation.
// Messages are sanitized and never include token material.
type TokenValidationError struct {
	// Stage is the pipeline stage that failed: decode, issuer, keyset,
	// signature, audience, expiry.
	Stage string

	// Err is the underlying sentinel or wrapped cause.
	Err error
}

func (e *TokenValidationError) Error() string {
	return fmt.Sprintf("auth: token validation failed at %s: %v", e.Stage, e.Err)
}

func (e *TokenValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches ErrInvalidToken or the underlying
// sentinel, so callers can use errors.Is with either.
func (e *TokenValidationError) Is(target error) bool {
	if target == ErrInvalidToken {
		return true
	}
	return errors.Is(e.Err, target)
}

// validationErr builds a TokenValidationError for a pipeline stage.
func validationErr(stage string, err error) *TokenValidationError {
	return &TokenValidationError{Stage: stage, Err: err}
}

// AuthzError describes a denied authorization decision.
type AuthzError struct {
	Subject  string
	Resource string
	Action   string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %s denied %s:%s", e.Subject, e.Resource, e.Action)
}

func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}
