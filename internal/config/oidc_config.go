package config

import (
	"fmt"
	"strings"
)

// OIDCConfig describes the registration with the external identity provider.
type OIDCConfig interface {
	GetProviderDomain() string
	GetAuthServerID() string
	GetIssuer() string
	GetClientID() string
	GetClientSecret() string
	GetAudience() string
	GetScopes() []string
}

type OIDC struct{}

var _ OIDCConfig = OIDC{}

// GetProviderDomain returns the identity provider's domain (e.g. "dev-123456.okta.com").
func (OIDC) GetProviderDomain() string {
	return GetEnv("OIDC_DOMAIN", "")
}

// GetAuthServerID returns the authorization-server identifier for providers that
// host multiple authorization servers under one domain. May be empty.
func (OIDC) GetAuthServerID() string {
	return GetEnv("OIDC_AUTH_SERVER_ID", "default")
}

// GetIssuer composes the issuer URL from the provider domain and the
// authorization-server identifier. OIDC_ISSUER overrides the composition.
func (o OIDC) GetIssuer() string {
	if issuer := GetEnv("OIDC_ISSUER", ""); issuer != "" {
		return strings.TrimRight(issuer, "/")
	}

	domain := o.GetProviderDomain()
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	domain = strings.TrimRight(domain, "/")

	if serverID := o.GetAuthServerID(); serverID != "" {
		return fmt.Sprintf("%s/oauth2/%s", domain, serverID)
	}
	return domain
}

func (OIDC) GetClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (OIDC) GetClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

// GetAudience returns the audience the protected API expects in access tokens.
func (OIDC) GetAudience() string {
	return GetEnv("OIDC_AUDIENCE", "api")
}

func (OIDC) GetScopes() []string {
	scopes := GetEnv("OIDC_SCOPES", "openid profile email offline_access")
	return strings.Fields(scopes)
}
