package config

import (
	"os"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	backendURLVar = "PORTAL_BACKEND_URL"
	folderEnvVar  = "AUTHCTL_DATA_DIR"
	redisAddrVar  = "AUTHCTL_REDIS_ADDR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "authctl")
}

func (EnvVars) GetBackendURL() string {
	return GetEnv(backendURLVar, "http://localhost:8080")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

func (EnvVars) GetRequestTimeout() time.Duration {
	return 30 * time.Second
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
