package config

import "time"

type TokenConfig interface {
	GetClockSkew() time.Duration
	GetRefreshTimeout() time.Duration
	GetJWKSCacheTTL() time.Duration
	GetSessionLifetime() time.Duration
}

type Token struct{}

var _ TokenConfig = Token{}

// GetClockSkew returns the safety margin applied when checking token expiry.
// Compensates for clock drift against the identity provider and in-flight latency.
func (Token) GetClockSkew() time.Duration {
	return GetDurationEnv("TOKEN_CLOCK_SKEW", 5*time.Minute)
}

// GetRefreshTimeout bounds a single refresh round trip to the provider.
func (Token) GetRefreshTimeout() time.Duration {
	return GetDurationEnv("TOKEN_REFRESH_TIMEOUT", 10*time.Second)
}

// GetJWKSCacheTTL returns how long the provider's signing keys are cached
// before re-fetching.
func (Token) GetJWKSCacheTTL() time.Duration {
	return GetDurationEnv("JWKS_CACHE_TTL", 15*time.Minute)
}

// GetSessionLifetime returns the UI login session lifetime.
func (Token) GetSessionLifetime() time.Duration {
	return GetDurationEnv("SESSION_LIFETIME", 8*time.Hour)
}

func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
