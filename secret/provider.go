package secret

import (
	"context"
	"os"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves secrets from process environment variables.
// The ref is the variable name; a missing variable resolves to "".
type EnvProvider struct{}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve returns the value of the named environment variable.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	return os.Getenv(strings.TrimSpace(ref)), nil
}

// Close is a no-op.
func (EnvProvider) Close() error { return nil }

var _ Provider = EnvProvider{}
