package config

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	CacheConfig
	RouteConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBackendURL() string
	GetBackendAnonKey() string
	GetJWTSecret() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Cache
	Routes
}

func New() Config {
	return mainConfig{}
}
