// Package auth implements JWT decoding and validation against per-issuer
// JWKS key sets.
//
// The entry points are Decode, which splits and parses a compact JWT without
// verifying it, and Validator.Validate, which runs the full pipeline: decode,
// issuer discovery, JWKS key lookup by kid, RS256 signature verification,
// audience check, and expiry check. A token's Valid flag is set only when
// every stage passes.
//
// JWKS documents are fetched from {issuer}/.well-known/jwks.json and cached
// per issuer with a TTL (default 60 minutes). Concurrent fetches for the
// same issuer are collapsed, and fetches are bounded by a timeout with one
// retry on transient errors.
//
// The package also carries the Principal value handed to collaborators,
// context helpers for attaching it to requests, and bearer-token extraction
// for HTTP transports.
package auth
