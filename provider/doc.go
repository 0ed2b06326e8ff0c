// Package provider defines the pluggable identity-provider abstraction and
// its AWS Cognito implementation.
//
// An IdentityProvider authenticates credentials, validates and refreshes
// tokens, and exposes the JWKS used for verification. Authentication
// returns a uniform Result: expected challenge states (new password
// required, MFA) are unsuccessful results with stable codes, never errors,
// so callers always branch on one shape.
//
// Providers are created through a registry keyed by provider type. Only
// the Cognito type has a registered factory today; okta, auth0, and
// azure-ad are declared as extension points.
package provider
