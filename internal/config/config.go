package config

type Config interface {
	EnvConfig
	OIDCConfig
	TokenConfig
}

type mainConfig struct {
	EnvVars
	OIDC
	Token
}

func New() Config {
	return mainConfig{}
}
