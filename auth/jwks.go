package auth

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/agentauth/cache"
	"github.com/jonwraymond/agentauth/resilience"
)

// DefaultFetchTimeout bounds a single JWKS fetch cycle.
const DefaultFetchTimeout = 10 * time.Second

// JWKSEndpoint returns the well-known JWKS URL for an issuer.
func JWKSEndpoint(issuer string) string {
	return strings.TrimSuffix(issuer, "/") + "/.well-known/jwks.json"
}

// JWKSConfig configures the JWKS cache.
type JWKSConfig struct {
	// Cache stores raw JWKS documents keyed by issuer.
	// If nil, an in-memory cache with the key-set policy is used.
	Cache cache.Cache

	// Policy controls document TTLs. Zero value means the key-set policy
	// (60 minute default, 24 hour maximum).
	Policy cache.Policy

	// HTTPClient is used for fetches. If nil, a default client is used.
	HTTPClient *http.Client

	// FetchTimeout bounds one fetch cycle including the retry.
	// Default: 10 seconds.
	FetchTimeout time.Duration

	// Endpoint maps an issuer to its JWKS URL. Default: JWKSEndpoint.
	// Overridable for providers whose key URL is not derived from the
	// issuer, and for tests.
	Endpoint func(issuer string) string
}

// JWKSCache retrieves and caches JWKS key sets per issuer.
//
// Raw documents live in the byte cache under the issuer key and expire by
// TTL only. Parsed RSA keys are memoized alongside and re-parsed whenever
// the cached document bytes change. Concurrent fetches for the same issuer
// are collapsed into one network call.
type JWKSCache struct {
	config JWKSConfig

	mu     sync.RWMutex
	parsed map[string]*issuerKeys

	sfGroup singleflight.Group
}

// issuerKeys is the parsed form of one issuer's cached document.
type issuerKeys struct {
	raw  []byte
	keys map[string]*rsa.PublicKey
}

// NewJWKSCache creates a new JWKS cache.
func NewJWKSCache(config JWKSConfig) *JWKSCache {
	if !config.Policy.ShouldCache() {
		config.Policy = cache.KeySetPolicy()
	}
	if config.Cache == nil {
		config.Cache = cache.NewMemoryCache(config.Policy)
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: DefaultFetchTimeout}
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.Endpoint == nil {
		config.Endpoint = JWKSEndpoint
	}

	return &JWKSCache{
		config: config,
		parsed: make(map[string]*issuerKeys),
	}
}

// Key returns the RSA public key with the given kid for the issuer.
// A fresh cached document is authoritative: a kid miss within the TTL
// returns ErrKeyNotFound without refetching.
func (c *JWKSCache) Key(ctx context.Context, issuer, kid string) (*rsa.PublicKey, error) {
	doc, err := c.Document(ctx, issuer)
	if err != nil {
		return nil, err
	}

	keys, err := c.keysFor(issuer, doc)
	if err != nil {
		return nil, err
	}

	key, ok := keys[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// Document returns the raw JWKS JSON document for the issuer, serving from
// cache within the TTL and fetching otherwise.
func (c *JWKSCache) Document(ctx context.Context, issuer string) ([]byte, error) {
	if err := cache.ValidateKey(issuer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetFetch, err)
	}

	if doc, ok := c.config.Cache.Get(ctx, issuer); ok {
		return doc, nil
	}

	result, err, _ := c.sfGroup.Do(issuer, func() (any, error) {
		// Re-check under singleflight; a concurrent caller may have
		// populated the cache while this call waited.
		if doc, ok := c.config.Cache.Get(ctx, issuer); ok {
			return doc, nil
		}

		doc, err := c.fetch(ctx, issuer)
		if err != nil {
			return nil, err
		}

		ttl := c.config.Policy.EffectiveTTL(0)
		if err := c.config.Cache.Set(ctx, issuer, doc, ttl); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeySetFetch, err)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// Evict drops the cached document and parsed keys for an issuer.
func (c *JWKSCache) Evict(ctx context.Context, issuer string) {
	_ = c.config.Cache.Delete(ctx, issuer)

	c.mu.Lock()
	delete(c.parsed, issuer)
	c.mu.Unlock()
}

// keysFor returns the parsed key map for a document, re-parsing only when
// the document bytes changed since the last parse.
func (c *JWKSCache) keysFor(issuer string, doc []byte) (map[string]*rsa.PublicKey, error) {
	c.mu.RLock()
	entry := c.parsed[issuer]
	c.mu.RUnlock()

	if entry != nil && bytes.Equal(entry.raw, doc) {
		return entry.keys, nil
	}

	keys, err := parseKeySet(doc)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.parsed[issuer] = &issuerKeys{raw: doc, keys: keys}
	c.mu.Unlock()

	return keys, nil
}

// fetch retrieves the JWKS document over the network, bounded by the fetch
// timeout with one retry on transient errors.
func (c *JWKSCache) fetch(ctx context.Context, issuer string) ([]byte, error) {
	url := c.config.Endpoint(issuer)

	var doc []byte
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 250 * time.Millisecond,
		RetryIf:      isTransientFetchErr,
	})

	err := retry.Execute(ctx, func(ctx context.Context) error {
		return resilience.ExecuteWithTimeout(ctx, c.config.FetchTimeout, func(ctx context.Context) error {
			var fetchErr error
			doc, fetchErr = c.fetchOnce(ctx, url)
			return fetchErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetFetch, err)
	}

	return doc, nil
}

func (c *JWKSCache) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &fetchStatusError{status: resp.StatusCode}
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Reject documents that do not parse; a broken document must not
	// poison the cache for a full TTL.
	if _, err := parseKeySet(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// fetchStatusError reports a non-200 JWKS response.
type fetchStatusError struct {
	status int
}

func (e *fetchStatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.status)
}

// isTransientFetchErr reports whether a fetch failure is worth one retry.
// Server errors, timeouts, and network errors are transient; client errors
// and malformed documents are not.
func isTransientFetchErr(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *fetchStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status >= 500
	}

	if errors.Is(err, resilience.ErrTimeout) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// jwksDocument is the JWKS endpoint response format.
type jwksDocument struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey is a single JWK.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseKeySet decodes a JWKS document into RSA public keys by kid.
// Non-RSA and malformed entries are skipped.
func parseKeySet(doc []byte) (map[string]*rsa.PublicKey, error) {
	var parsed jwksDocument
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, jwk := range parsed.Keys {
		if jwk.Kty != "RSA" {
			continue
		}

		pubKey, err := parseRSAPublicKey(jwk)
		if err != nil {
			continue
		}

		keys[jwk.Kid] = pubKey
	}

	return keys, nil
}

// parseRSAPublicKey converts a JWK to an RSA public key.
func parseRSAPublicKey(jwk jwkKey) (*rsa.PublicKey, error) {
	if jwk.N == "" {
		return nil, fmt.Errorf("missing n parameter")
	}
	if jwk.E == "" {
		return nil, fmt.Errorf("missing e parameter")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	n := new(big.Int).SetBytes(nBytes)

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}
