package auth

import (
	"context"
	"net/http"
	"strings"
)

// ExtractBearerToken pulls the token out of an Authorization header value.
// A missing or non-bearer header returns empty string, not an error; the
// caller decides whether an absent token is a failure.
func ExtractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// WithAuthHeaders is HTTP middleware that extracts request headers into the
// context so auth code can reach the Authorization header.
//
// Usage:
//
//	mux.Handle("/api", auth.WithAuthHeaders(apiHandler))
func WithAuthHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithHeaders(r.Context(), r.Header)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestBearerToken extracts the bearer token from an HTTP request.
// Returns empty string when the request carries none.
func RequestBearerToken(r *http.Request) string {
	return ExtractBearerToken(r.Header.Get("Authorization"))
}

// BearerTokenFromContext extracts the bearer token from headers previously
// attached with WithHeaders. Returns empty string when absent.
func BearerTokenFromContext(ctx context.Context) string {
	return ExtractBearerToken(GetHeader(ctx, "Authorization"))
}
