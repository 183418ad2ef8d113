package bearer

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySubject stores the verified token's subject
	ContextKeySubject ContextKey = "subject"
	// ContextKeyToken stores the verified jwt.Token
	ContextKeyToken ContextKey = "token"
)

// Middleware validates the Authorization header on API routes and injects the
// verified subject and claims into the request context. Any failure answers
// 401 with an OAuth-style JSON error body; the handler never runs.
func (v *Verifier) Middleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				unauthorized(w, "Invalid Authorization header format")
				return
			}

			tok, err := v.Verify(r.Context(), parts[1])
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, tok.Subject())
			ctx = context.WithValue(ctx, ContextKeyToken, tok)
			next(w, r.WithContext(ctx))
		}
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
