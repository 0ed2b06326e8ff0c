package auth

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTokenValidationError(t *testing.T) {
	err := validationErr("expiry", ErrTokenExpired)

	if !errors.Is(err, ErrTokenExpired) {
		t.Error("errors.Is(err, ErrTokenExpired) = false")
	}
	if !errors.Is(err, ErrInvalidToken) {
		t.Error("errors.Is(err, ErrInvalidToken) = false")
	}
	if errors.Is(err, ErrForbidden) {
		t.Error("errors.Is(err, ErrForbidden) = true")
	}

	if !strings.Contains(err.Error(), "expiry") {
		t.Errorf("Error() = %q, want stage name in message", err.Error())
	}

	var vErr *TokenValidationError
	if !errors.As(err, &vErr) {
		t.Fatal("errors.As failed")
	}
	if vErr.Stage != "expiry" {
		t.Errorf("Stage = %q", vErr.Stage)
	}
}

func TestTokenValidationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("validate request: %w", validationErr("signature", ErrSignatureInvalid))

	if !errors.Is(err, ErrInvalidToken) {
		t.Error("wrapped error does not match ErrInvalidToken")
	}
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Error("wrapped error does not match ErrSignatureInvalid")
	}
}

func TestAuthzError(t *testing.T) {
	err := &AuthzError{Subject: "user-1", Resource: "agent", Action: "delete"}

	if !errors.Is(err, ErrForbidden) {
		t.Error("errors.Is(err, ErrForbidden) = false")
	}
	if errors.Is(err, ErrInvalidToken) {
		t.Error("errors.Is(err, ErrInvalidToken) = true")
	}

	msg := err.Error()
	for _, want := range []string{"user-1", "agent", "delete"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want %q in message", msg, want)
		}
	}
}
