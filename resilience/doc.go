// Package resilience bounds external calls made by the auth stack.
//
// It provides two patterns:
//
//   - Timeout: ensures an operation completes within a time limit. The JWKS
//     network fetch (10s) and role-manager initialization (30s) are the two
//     bounded points in the auth pipeline.
//
//   - Retry: retries failed operations with configurable backoff. The JWKS
//     fetch retries once on transient network failure.
//
// Patterns compose by nesting:
//
//	err := resilience.ExecuteWithTimeout(ctx, 10*time.Second, func(ctx context.Context) error {
//	    return fetchKeys(ctx)
//	})
package resilience
