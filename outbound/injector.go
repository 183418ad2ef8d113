// Package outbound bridges the UI login session to the protected API: every
// outgoing request gets the session's access token attached as a bearer
// credential. The injector never fails a request of its own accord; the API's
// 401 response is the final authority on access control.
package outbound

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-token-bridge/session"
	"github.com/jrsteele09/go-token-bridge/token"
)

// Injector is an http.RoundTripper that attaches "Authorization: Bearer <token>"
// to requests whose context carries an authenticated session principal.
//
// When built with WithFreshness, the injector checks the stored token with the
// Validator first and, if stale, refreshes it synchronously before attaching.
// The refresh is deduplicated per session so concurrent requests cause at
// most one provider call. Without WithFreshness it attaches whatever token the
// session currently holds.
type Injector struct {
	base      http.RoundTripper
	validator *token.Validator
	refresher *token.Refresher
	sessions  session.Repo
	group     singleflight.Group
	logger    zerolog.Logger
}

// InjectorOption defines a function type to modify the Injector instance.
type InjectorOption func(*Injector)

// WithBaseTransport sets the wrapped transport (defaults to http.DefaultTransport).
func WithBaseTransport(rt http.RoundTripper) InjectorOption {
	return func(i *Injector) {
		i.base = rt
	}
}

// WithFreshness wires the validator, refresher and session store so stale
// tokens are replaced before the request goes out instead of bouncing off the
// API with a guaranteed 401.
func WithFreshness(validator *token.Validator, refresher *token.Refresher, sessions session.Repo) InjectorOption {
	return func(i *Injector) {
		i.validator = validator
		i.refresher = refresher
		i.sessions = sessions
	}
}

// WithLogger overrides the logger (primarily for testing).
func WithLogger(logger zerolog.Logger) InjectorOption {
	return func(i *Injector) {
		i.logger = logger
	}
}

// NewInjector creates an Injector around http.DefaultTransport.
func NewInjector(options ...InjectorOption) *Injector {
	i := &Injector{
		base:   http.DefaultTransport,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// RoundTrip implements http.RoundTripper. Requests without a principal, and
// requests whose principal holds no access token, are forwarded unmodified;
// the latter logs a warning because an authenticated session without a token
// is inconsistent state. Failures inside the injection path are logged and the
// request proceeds without a token.
func (i *Injector) RoundTrip(req *http.Request) (*http.Response, error) {
	principal, ok := session.PrincipalFrom(req.Context())
	if !ok || !principal.Authenticated() {
		return i.base.RoundTrip(req)
	}

	if principal.AccessToken == "" {
		i.logger.Warn().
			Str("session_id", principal.SessionID).
			Str("subject", principal.Subject).
			Msg("authenticated session has no access token, forwarding unauthenticated")
		return i.base.RoundTrip(req)
	}

	accessToken := i.freshAccessToken(req.Context(), principal)

	// RoundTrippers must not mutate the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+accessToken)
	return i.base.RoundTrip(clone)
}

// freshAccessToken returns the token to attach. With freshness wiring it
// refreshes a stale token first, falling back to the stored token when the
// refresh cannot produce a replacement.
func (i *Injector) freshAccessToken(ctx context.Context, principal session.Principal) string {
	if i.validator == nil || i.refresher == nil || i.sessions == nil {
		return principal.AccessToken
	}
	if i.validator.IsValid(principal.AccessToken) {
		return principal.AccessToken
	}
	if principal.RefreshToken == "" {
		i.logger.Warn().
			Str("session_id", principal.SessionID).
			Msg("access token stale and no refresh token held, attaching as stored")
		return principal.AccessToken
	}

	// Concurrent requests for the same session share one refresh round trip.
	refreshed, err, _ := i.group.Do(principal.SessionID, func() (any, error) {
		current, err := i.sessions.Get(principal.SessionID)
		if err == nil && i.validator.IsValid(current.AccessToken) {
			// Another flight already replaced the pair.
			return current.AccessToken, nil
		}

		pair, err := i.refresher.Refresh(ctx, principal.RefreshToken)
		if err != nil {
			return nil, err
		}

		updated, err := i.sessions.ReplaceTokens(principal.SessionID, pair.AccessToken, pair.RefreshToken)
		if err != nil {
			return nil, err
		}
		return updated.AccessToken, nil
	})
	if err != nil {
		i.logger.Warn().
			Err(err).
			Str("session_id", principal.SessionID).
			Msg("stale token refresh failed, attaching as stored")
		return principal.AccessToken
	}

	accessToken, ok := refreshed.(string)
	if !ok || accessToken == "" {
		return principal.AccessToken
	}
	return accessToken
}

// Client returns an *http.Client that injects tokens via this transport.
func (i *Injector) Client() *http.Client {
	return &http.Client{Transport: i}
}
