package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-token-bridge/token"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func TestValidator_IsValid(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	v := token.NewValidator(token.WithNowFunc(func() time.Time { return now }))

	t.Run("expiry well beyond the skew window", func(t *testing.T) {
		tok := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
		require.True(t, v.IsValid(tok))
	})

	t.Run("expiry just outside the skew window", func(t *testing.T) {
		tok := signedToken(t, jwt.MapClaims{"exp": now.Add(5*time.Minute + time.Second).Unix()})
		require.True(t, v.IsValid(tok))
	})

	t.Run("expiry just inside the skew window", func(t *testing.T) {
		tok := signedToken(t, jwt.MapClaims{"exp": now.Add(4*time.Minute + 59*time.Second).Unix()})
		require.False(t, v.IsValid(tok))
	})

	t.Run("expiry exactly at the skew boundary", func(t *testing.T) {
		tok := signedToken(t, jwt.MapClaims{"exp": now.Add(5 * time.Minute).Unix()})
		require.False(t, v.IsValid(tok))
	})

	t.Run("already expired", func(t *testing.T) {
		tok := signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})
		require.False(t, v.IsValid(tok))
	})

	t.Run("empty token", func(t *testing.T) {
		require.False(t, v.IsValid(""))
	})

	t.Run("whitespace token", func(t *testing.T) {
		require.False(t, v.IsValid("   "))
	})

	t.Run("not a token", func(t *testing.T) {
		require.False(t, v.IsValid("not-a-token"))
	})

	t.Run("missing expiry claim", func(t *testing.T) {
		tok := signedToken(t, jwt.MapClaims{"sub": "user-1"})
		require.False(t, v.IsValid(tok))
	})

	t.Run("ignores signature validity", func(t *testing.T) {
		tok := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
		tampered := tok[:len(tok)-4] + "AAAA"
		require.True(t, v.IsValid(tampered))
	})
}

func TestValidator_WithClockSkew(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	v := token.NewValidator(
		token.WithClockSkew(time.Minute),
		token.WithNowFunc(func() time.Time { return now }),
	)

	tok := signedToken(t, jwt.MapClaims{"exp": now.Add(2 * time.Minute).Unix()})
	require.True(t, v.IsValid(tok))

	tok = signedToken(t, jwt.MapClaims{"exp": now.Add(30 * time.Second).Unix()})
	require.False(t, v.IsValid(tok))
}
