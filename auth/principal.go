package auth

import "time"

// Principal represents an authenticated user as seen by collaborators.
// It is an immutable value constructed fresh per request; never persisted.
type Principal struct {
	// UserID is the unique identifier, usually the token subject.
	UserID string

	// Username is the human-readable name, when the token carries one.
	Username string

	// Email is the user's email address, when present.
	Email string

	// Groups are the raw group names asserted by the token.
	Groups []string

	// Roles are the resolved role names. When a role manager is configured
	// it is the sole authority for this field; otherwise raw token groups
	// pass through.
	Roles []string

	// Permissions are resolved "resource:action" strings.
	Permissions []string

	// Attributes carries any additional claims of interest.
	Attributes map[string]any

	// IssuedAt and ExpiresAt mirror the token timestamps.
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole checks if the principal holds a specific role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission checks if the principal holds a specific permission string.
// The wildcard "*:*" grants everything.
func (p *Principal) HasPermission(perm string) bool {
	for _, held := range p.Permissions {
		if held == "*:*" || held == perm {
			return true
		}
	}
	return false
}

// IsExpired checks if the principal's token has expired.
func (p *Principal) IsExpired() bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(p.ExpiresAt)
}

// PrincipalFromToken builds a Principal from a validated token.
// The token must have passed validation; an unvalidated token yields nil.
func PrincipalFromToken(token *DecodedToken) *Principal {
	if token == nil || !token.Valid {
		return nil
	}

	p := &Principal{
		UserID:     token.Subject,
		Username:   token.StringClaim("username"),
		Email:      token.StringClaim("email"),
		Attributes: make(map[string]any),
		IssuedAt:   token.IssuedAt,
		ExpiresAt:  token.ExpiresAt,
	}

	// Cognito access tokens carry the username under a prefixed claim
	if p.Username == "" {
		p.Username = token.StringClaim("cognito:username")
	}

	p.Groups = groupsClaim(token.Claims)
	p.Roles = append([]string(nil), p.Groups...)

	for k, v := range token.Claims {
		switch k {
		case "iss", "sub", "aud", "exp", "iat", "email", "username":
			// Carried in dedicated fields
		default:
			p.Attributes[k] = v
		}
	}

	return p
}

// groupsClaim extracts group membership from the common claim names.
func groupsClaim(claims map[string]any) []string {
	for _, name := range []string{"cognito:groups", "groups"} {
		raw, ok := claims[name].([]any)
		if !ok {
			continue
		}
		groups := make([]string, 0, len(raw))
		for _, g := range raw {
			if s, ok := g.(string); ok {
				groups = append(groups, s)
			}
		}
		return groups
	}
	return nil
}
