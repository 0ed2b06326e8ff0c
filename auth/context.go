package auth

import "context"

// Context keys for auth-related values.
type contextKey int

const (
	principalKey contextKey = iota
	headersKey
)

// WithPrincipal returns a new context with the given principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the principal from the context.
// Returns nil if no principal is present.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// UserIDFromContext retrieves the authenticated user id from the context.
// Returns empty string if no principal is present.
func UserIDFromContext(ctx context.Context) string {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return ""
	}
	return p.UserID
}

// WithHeaders returns a new context with the given HTTP headers attached.
func WithHeaders(ctx context.Context, headers map[string][]string) context.Context {
	return context.WithValue(ctx, headersKey, headers)
}

// HeadersFromContext retrieves HTTP headers from the context.
// Returns nil if no headers are present.
func HeadersFromContext(ctx context.Context) map[string][]string {
	h, _ := ctx.Value(headersKey).(map[string][]string)
	return h
}

// GetHeader retrieves a single header value from the context.
// Returns the first value if multiple values exist, or empty string if not found.
func GetHeader(ctx context.Context, key string) string {
	headers := HeadersFromContext(ctx)
	if headers == nil {
		return ""
	}
	values := headers[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
