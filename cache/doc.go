// Package cache provides TTL-bounded byte caching for fetched documents.
//
// It backs the per-issuer JWKS document cache: fetched key sets are stored as
// raw bytes keyed by issuer URL and expire after the configured TTL. The Cache
// interface has a memory implementation and a Policy that clamps
// caller-supplied TTLs to configured bounds.
package cache
