// Package bearer implements the protected API's side of the contract: full
// verification of incoming bearer tokens (signature against the provider's
// published signing keys, issuer, audience, expiry). This is the security
// boundary that the token package's Validator deliberately is not.
package bearer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-token-bridge/internal/config"
	autherrors "github.com/jrsteele09/go-token-bridge/internal/errors"
)

// keysEndpointPath is appended to the issuer to reach the provider's JWKS.
const keysEndpointPath = "/v1/keys"

// Verifier validates access tokens against the identity provider's JWKS.
type Verifier struct {
	keySet   jwk.Set
	issuer   string
	audience string
	skew     time.Duration
	logger   zerolog.Logger
}

// VerifierOption defines a function type to modify the Verifier instance.
type VerifierOption func(*Verifier)

// WithKeySet overrides the remote JWKS with a static key set (primarily for testing).
func WithKeySet(set jwk.Set) VerifierOption {
	return func(v *Verifier) {
		v.keySet = set
	}
}

// WithAcceptableSkew sets the clock-skew tolerance for exp/iat validation.
func WithAcceptableSkew(skew time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.skew = skew
	}
}

// WithLogger overrides the logger.
func WithLogger(logger zerolog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a Verifier that fetches and caches the provider's JWKS,
// re-fetching at most once per cacheTTL. The ctx bounds the lifetime of the
// background cache.
func NewVerifier(ctx context.Context, cfg config.OIDCConfig, cacheTTL time.Duration, options ...VerifierOption) (*Verifier, error) {
	v := &Verifier{
		issuer:   cfg.GetIssuer(),
		audience: cfg.GetAudience(),
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(v)
	}

	if v.keySet == nil {
		jwksURL := strings.TrimRight(cfg.GetIssuer(), "/") + keysEndpointPath
		cache := jwk.NewCache(ctx)
		if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(cacheTTL)); err != nil {
			return nil, autherrors.Wrapf(err, "bearer.NewVerifier register JWKS %q", jwksURL)
		}
		v.keySet = jwk.NewCachedSet(cache, jwksURL)
	}

	return v, nil
}

// Verify parses and fully validates a raw bearer token, returning its claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (jwt.Token, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, autherrors.ErrMissingToken
	}

	tok, err := jwt.Parse([]byte(raw),
		jwt.WithContext(ctx),
		jwt.WithKeySet(v.keySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithAcceptableSkew(v.skew),
	)
	if err != nil {
		v.logger.Debug().Err(err).Msg("bearer token rejected")
		return nil, fmt.Errorf("%w: %v", autherrors.ErrInvalidToken, err)
	}
	return tok, nil
}
