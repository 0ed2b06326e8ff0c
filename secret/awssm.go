package secret

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client used by
// the provider. Narrowed for fakes in tests.
type SecretsManagerAPI interface {
	GetSecretValueWithContext(ctx aws.Context, input *secretsmanager.GetSecretValueInput, opts ...request.Option) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerConfig configures the AWS Secrets Manager provider.
type SecretsManagerConfig struct {
	// Region is the AWS region. Falls back to the SDK default chain when empty.
	Region string

	// API overrides the Secrets Manager client. Used by tests.
	API SecretsManagerAPI
}

// SecretsManagerProvider resolves secrets from AWS Secrets Manager.
// The ref is the secret name or full ARN.
type SecretsManagerProvider struct {
	api SecretsManagerAPI
}

// NewSecretsManagerProvider creates an AWS Secrets Manager provider.
func NewSecretsManagerProvider(config SecretsManagerConfig) (*SecretsManagerProvider, error) {
	api := config.API
	if api == nil {
		awsCfg := aws.NewConfig()
		if config.Region != "" {
			awsCfg = awsCfg.WithRegion(config.Region)
		}
		sess, err := session.NewSession(awsCfg)
		if err != nil {
			return nil, fmt.Errorf("create AWS session: %w", err)
		}
		api = secretsmanager.New(sess)
	}
	return &SecretsManagerProvider{api: api}, nil
}

// Name returns "awssm".
func (p *SecretsManagerProvider) Name() string { return "awssm" }

// Resolve fetches the secret string for the given name or ARN.
func (p *SecretsManagerProvider) Resolve(ctx context.Context, ref string) (string, error) {
	out, err := p.api.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}
	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	// Binary secrets are returned verbatim.
	return string(out.SecretBinary), nil
}

// Close is a no-op; the underlying client holds no connections.
func (p *SecretsManagerProvider) Close() error { return nil }

var _ Provider = (*SecretsManagerProvider)(nil)
