package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
}

type EnvConfig interface {
	GetAppName() string
	GetBackendURL() string
	GetDataFolder() string
	GetRedisAddr() string
	GetRequestTimeout() time.Duration
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}

// File holds optional on-disk defaults for the authctl CLI. Values from the
// file sit below environment variables and command-line flags.
type File struct {
	BackendURL     string `yaml:"backend_url"`
	DataFolder     string `yaml:"data_folder"`
	Storage        string `yaml:"storage"`
	RedisAddr      string `yaml:"redis_addr"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout converts the configured request deadline; zero means unset.
func (f *File) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// DefaultFilePath returns the conventional location of the config file.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "authctl", "config.yaml")
}

// LoadFile reads a YAML config file. A missing file at the default location
// is not an error; an explicitly requested file must exist.
func LoadFile(path string, required bool) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "[LoadFile] read config")
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "[LoadFile] parse config")
	}
	return &f, nil
}
