package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar = "PORT"
	appNameVar = "APP_NAME"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetAPIBaseURL() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Token Bridge")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the base URL this UI is served from (e.g. "https://app.example.com").
// Used to build the OIDC redirect URI.
func (EnvVars) GetBaseURL() string {
	return GetEnv("BASE_URL", "http://localhost:8080")
}

// GetAPIBaseURL returns the base URL of the protected REST API that outbound
// requests are bridged to.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:5001")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
