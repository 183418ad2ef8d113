package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultClockSkew is the safety margin applied to a token's expiry. A token
// whose expiry falls inside the margin is treated as already stale, absorbing
// clock drift against the identity provider and in-flight request latency.
const DefaultClockSkew = 5 * time.Minute

// Validator is a fast, local liveness pre-filter on bearer tokens. It decodes
// the claim set WITHOUT verifying the signature: signature, issuer and audience
// verification is the protected API's job on every request (see the bearer
// package). A Validator answer of true only means the token is worth sending.
type Validator struct {
	skew    time.Duration
	nowFunc func() time.Time
}

// ValidatorOption defines a function type to modify the Validator instance.
type ValidatorOption func(*Validator)

// WithClockSkew overrides the default expiry safety margin.
func WithClockSkew(skew time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.skew = skew
	}
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.nowFunc = nowFunc
	}
}

// NewValidator creates a Validator with the default five minute clock-skew margin.
func NewValidator(options ...ValidatorOption) *Validator {
	v := &Validator{
		skew:    DefaultClockSkew,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// IsValid reports whether the token is currently usable: decodable, with an
// expiry strictly after now plus the skew margin. Empty, malformed and
// expiry-less tokens are invalid. Never panics, no side effects.
func (v *Validator) IsValid(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return exp.Time.After(v.nowFunc().UTC().Add(v.skew))
}
