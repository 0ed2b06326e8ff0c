// Package secret resolves secret references in configuration values.
//
// Values of the form "secretref:<provider>:<ref>" are resolved through
// registered providers (environment, AWS Secrets Manager). Other values are
// returned after strict environment expansion. The auth service uses this to
// bootstrap its identity-provider configuration from a secret-store reference
// without embedding credentials in config files.
package secret
