package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jonwraymond/agentauth/provider"
	"github.com/jonwraymond/agentauth/secret"
)

// Environment variable names for the fallback config source.
const (
	EnvProviderType = "AUTH_PROVIDER"
	EnvClientID     = "AUTH_CLIENT_ID"
	EnvClientSecret = "AUTH_CLIENT_SECRET"
	EnvPoolID       = "AUTH_POOL_ID"
	EnvRegion       = "AUTH_REGION"
	EnvScopes       = "AUTH_SCOPES"
	EnvIssuer       = "AUTH_ISSUER"
)

var (
	// ErrNoConfig indicates no configuration source yielded a usable config.
	ErrNoConfig = errors.New("service: no auth configuration available")
)

// Config is the immutable auth service configuration.
type Config struct {
	ProviderType provider.Type
	ClientID     string
	ClientSecret string
	PoolID       string
	Region       string
	Scopes       []string

	// Issuer overrides the derived token issuer. Tests and non-standard
	// deployments only.
	Issuer string
}

// Validate checks the minimum required parameters.
func (c *Config) Validate() error {
	if c.ProviderType == "" {
		return errors.New("service: provider type is required")
	}
	if c.ClientID == "" {
		return errors.New("service: client id is required")
	}
	return nil
}

// ProviderConfig converts to the provider package's config shape.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		Type:         c.ProviderType,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		PoolID:       c.PoolID,
		Region:       c.Region,
		Scopes:       append([]string(nil), c.Scopes...),
		Issuer:       c.Issuer,
	}
}

// poolBootstrap is the JSON shape stored behind a secret reference.
type poolBootstrap struct {
	PoolID      string `json:"pool_id"`
	AppClientID string `json:"app_client_id"`
}

// ConfigFromSecretRef resolves a "secretref:<provider>:<ref>" value to the
// pool bootstrap JSON and fills a config. Region and provider type still
// come from the environment when present.
func ConfigFromSecretRef(ctx context.Context, resolver *secret.Resolver, ref string) (*Config, error) {
	if resolver == nil {
		return nil, errors.New("service: secret resolver is nil")
	}

	raw, err := resolver.ResolveValue(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve auth secret: %w", err)
	}

	var bootstrap poolBootstrap
	if err := json.Unmarshal([]byte(raw), &bootstrap); err != nil {
		return nil, fmt.Errorf("decode auth secret: %w", err)
	}
	if bootstrap.PoolID == "" || bootstrap.AppClientID == "" {
		return nil, errors.New("service: auth secret missing pool_id or app_client_id")
	}

	cfg := configFromEnvValues()
	cfg.PoolID = bootstrap.PoolID
	cfg.ClientID = bootstrap.AppClientID
	if cfg.ProviderType == "" {
		cfg.ProviderType = provider.TypeCognito
	}
	return cfg, nil
}

// ConfigFromEnv builds a config from environment variables, loading a
// .env file first when one exists. Returns ErrNoConfig when the
// environment carries nothing usable.
func ConfigFromEnv() (*Config, error) {
	// Missing .env files are fine; explicit env wins either way
	_ = godotenv.Load()

	cfg := configFromEnvValues()
	if cfg.ClientID == "" && cfg.PoolID == "" {
		return nil, ErrNoConfig
	}
	if cfg.ProviderType == "" {
		cfg.ProviderType = provider.TypeCognito
	}
	return cfg, nil
}

func configFromEnvValues() *Config {
	cfg := &Config{
		ProviderType: provider.Type(os.Getenv(EnvProviderType)),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		PoolID:       os.Getenv(EnvPoolID),
		Region:       os.Getenv(EnvRegion),
		Issuer:       os.Getenv(EnvIssuer),
	}
	if scopes := os.Getenv(EnvScopes); scopes != "" {
		for _, s := range strings.Split(scopes, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Scopes = append(cfg.Scopes, s)
			}
		}
	}
	return cfg
}
