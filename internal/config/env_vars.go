package config

import (
	"fmt"
	"os"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	folderEnvVar      = "FOLDER"
	backendURLVar     = "BACKEND_URL"
	backendAnonKeyVar = "BACKEND_ANON_KEY"
	jwtSecretVar      = "JWT_SECRET"
	logLevelVar       = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Contest Portal")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetBackendURL returns the base URL of the hosted backend (e.g., "https://project.example.com").
// Functions, auth and rest endpoints are all resolved relative to it.
func (EnvVars) GetBackendURL() string {
	return GetEnv(backendURLVar, "http://localhost:8080")
}

func (EnvVars) GetBackendAnonKey() string {
	return GetEnv(backendAnonKeyVar, "")
}

func (EnvVars) GetJWTSecret() string {
	return GetEnv(jwtSecretVar, "dev-secret-change-me")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv parses a Go duration string ("90m", "2h") falling back to
// defaultValue when the variable is unset or malformed.
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
