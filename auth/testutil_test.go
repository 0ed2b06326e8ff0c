package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testKeySet bundles a signing key with its published JWKS document.
type testKeySet struct {
	private *rsa.PrivateKey
	kid     string
	doc     []byte
}

func newTestKeySet(t *testing.T, kid string) *testKeySet {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	pub := &private.PublicKey
	doc, err := json.Marshal(map[string]any{
		"keys": []map[string]string{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}

	return &testKeySet{private: private, kid: kid, doc: doc}
}

// sign produces a compact RS256 token with the key set's kid header.
func (ks *testKeySet) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ks.kid

	raw, err := token.SignedString(ks.private)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

// jwksServer serves a JWKS document and counts fetches.
type jwksServer struct {
	*httptest.Server
	fetches atomic.Int64
}

func newJWKSServer(t *testing.T, doc []byte) *jwksServer {
	t.Helper()

	srv := &jwksServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestValidator wires a validator against a JWKS server. The server URL
// stands in for the issuer, so tokens must carry iss = server URL.
func newTestValidator(t *testing.T, ks *testKeySet) (*Validator, *jwksServer) {
	t.Helper()

	srv := newJWKSServer(t, ks.doc)
	keySets := NewJWKSCache(JWKSConfig{
		Endpoint: func(string) string { return srv.URL },
	})
	return NewValidator(ValidatorConfig{KeySets: keySets}), srv
}

// baseClaims returns a claim set that passes the full pipeline.
func baseClaims(issuer string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": issuer,
		"sub": "user-1",
		"aud": "client-1",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}
