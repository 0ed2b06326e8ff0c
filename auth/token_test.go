package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestDecode_Format(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "two segments", raw: "aaaa.bbbb"},
		{name: "four segments", raw: "a.b.c.d"},
		{name: "garbage segments", raw: "not.base64!.either"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			if !errors.Is(err, ErrTokenFormat) {
				t.Errorf("Decode(%q) error = %v, want ErrTokenFormat", tt.raw, err)
			}
			if !errors.Is(err, ErrInvalidToken) {
				t.Error("format error should match ErrInvalidToken")
			}
		})
	}
}

func TestDecode_Claims(t *testing.T) {
	ks := newTestKeySet(t, "kid-1")
	now := time.Now()
	raw := ks.sign(t, jwt.MapClaims{
		"iss":   "https://issuer.example.com",
		"sub":   "user-42",
		"aud":   "client-1",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"email": "u@example.com",
	})

	token, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if token.Valid {
		t.Error("Decode must never set Valid")
	}
	if token.Issuer != "https://issuer.example.com" {
		t.Errorf("Issuer = %q", token.Issuer)
	}
	if token.Subject != "user-42" {
		t.Errorf("Subject = %q", token.Subject)
	}
	if !token.HasAudience("client-1") {
		t.Errorf("Audience = %v, want to contain client-1", token.Audience)
	}
	if token.KeyID() != "kid-1" {
		t.Errorf("KeyID() = %q", token.KeyID())
	}
	if token.StringClaim("email") != "u@example.com" {
		t.Errorf("email claim = %q", token.StringClaim("email"))
	}
	if got := token.ExpiresAt.Unix(); got != now.Add(time.Hour).Unix() {
		t.Errorf("ExpiresAt = %d", got)
	}
	if token.SignatureSegment == "" {
		t.Error("SignatureSegment is empty")
	}
}

func TestDecode_MissingTimestampsDefaultToEpoch(t *testing.T) {
	ks := newTestKeySet(t, "kid-1")
	raw := ks.sign(t, jwt.MapClaims{"iss": "https://issuer.example.com"})

	token, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	epoch := time.Unix(0, 0)
	if !token.IssuedAt.Equal(epoch) {
		t.Errorf("IssuedAt = %v, want epoch", token.IssuedAt)
	}
	if !token.ExpiresAt.Equal(epoch) {
		t.Errorf("ExpiresAt = %v, want epoch", token.ExpiresAt)
	}
}

func TestDecode_AudienceList(t *testing.T) {
	ks := newTestKeySet(t, "kid-1")
	raw := ks.sign(t, jwt.MapClaims{
		"iss": "https://issuer.example.com",
		"aud": []string{"client-1", "client-2"},
	})

	token, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if !token.HasAudience("client-1") || !token.HasAudience("client-2") {
		t.Errorf("Audience = %v", token.Audience)
	}
	if token.HasAudience("client-3") {
		t.Error("HasAudience(client-3) = true")
	}
}
