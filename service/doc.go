// Package service composes the identity provider, token validator, and
// role manager into one auth service per process.
//
// Initialize accepts, in priority order, a direct Config, a secret-store
// reference resolving to the pool bootstrap JSON, or environment-variable
// fallback. It returns false instead of an error on failure so the host
// can stay up in a degraded, unauthenticated mode.
//
// After validation the service enriches principals: when a role manager is
// configured it overwrites provider-asserted roles and permissions with
// the manager's computed answer; token claims establish identity and raw
// group membership, the role manager alone decides what the groups grant.
// Without a role manager, raw token groups pass through unchanged.
package service
