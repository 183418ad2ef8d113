package session

import (
	"context"
	"time"
)

// Principal is the claims bag associated with a logged-in UI user. Fields are
// typed rather than looked up by claim name, so a missing token is a zero
// value, not a typo. The token pair is the MOST RECENT pair issued for the
// user; refresh replaces it, never appends.
type Principal struct {
	// Core identity
	SessionID string
	Subject   string
	Email     string
	Name      string

	// Tokens (refresh is essential, access is convenience)
	AccessToken  string
	RefreshToken string

	// Session management
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Authenticated reports whether the principal represents a logged-in user.
func (p Principal) Authenticated() bool {
	return p.SessionID != ""
}

type contextKey struct{}

// WithPrincipal returns a context carrying the principal. The principal is
// passed explicitly on the request context rather than read from ambient
// session state, so the outbound path stays testable without a framework.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom returns the principal carried by the context, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
