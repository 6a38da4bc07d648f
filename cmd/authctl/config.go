package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/campusgate/portalauth/internal/config"
)

// Config holds all configuration options. Precedence: command-line flags,
// then environment variables, then the YAML config file, then built-ins.
type Config struct {
	BackendURL string        `long:"backend-url" env:"PORTAL_BACKEND_URL" description:"Auth backend base URL"`
	ConfigPath string        `long:"config" env:"AUTHCTL_CONFIG" description:"Path to YAML config file"`
	Timeout    time.Duration `long:"timeout" env:"AUTHCTL_TIMEOUT" description:"Backend request deadline"`

	// Storage config
	Storage    string `long:"storage" env:"AUTHCTL_STORAGE" choice:"file" choice:"memory" choice:"redis" description:"Token storage backend (default file)"`
	DataDir    string `long:"data-dir" env:"AUTHCTL_DATA_DIR" description:"Directory for the token file"`
	Passphrase string `long:"passphrase" env:"AUTHCTL_PASSPHRASE" description:"Encrypt the token file at rest"`

	// Redis config
	Redis struct {
		Addr      string `long:"redis-addr" env:"AUTHCTL_REDIS_ADDR" description:"Redis address"`
		Password  string `long:"redis-password" env:"AUTHCTL_REDIS_PASSWORD" description:"Redis password"`
		DB        int    `long:"redis-db" env:"AUTHCTL_REDIS_DB" default:"0" description:"Redis database number"`
		ContextID string `long:"redis-context" env:"AUTHCTL_REDIS_CONTEXT" default:"default" description:"Browser-context key suffix"`
	} `group:"Redis Options"`

	Verbose bool `short:"v" long:"verbose" description:"Enable debug logging"`
}

// LoadConfig parses flags and environment, then fills the gaps from the
// YAML config file and the built-in defaults. It returns the remaining
// positional arguments (the command and its operands).
func LoadConfig() (*Config, []string, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS] COMMAND [ARGS...]"

	args, err := parser.Parse()
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		return nil, nil, errors.Wrap(err, "[LoadConfig] parse flags")
	}

	filePath := cfg.ConfigPath
	required := filePath != ""
	if filePath == "" {
		filePath = config.DefaultFilePath()
	}

	fileCfg := &config.File{}
	if filePath != "" {
		fileCfg, err = config.LoadFile(filePath, required)
		if err != nil {
			return nil, nil, err
		}
	}

	env := config.New()
	if cfg.BackendURL == "" {
		cfg.BackendURL = firstNonEmpty(fileCfg.BackendURL, env.GetBackendURL())
	}
	if cfg.Storage == "" {
		cfg.Storage = firstNonEmpty(fileCfg.Storage, "file")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = firstNonEmpty(fileCfg.DataFolder, env.GetDataFolder())
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = firstNonEmpty(fileCfg.RedisAddr, env.GetRedisAddr())
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = fileCfg.Timeout()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = env.GetRequestTimeout()
	}

	return &cfg, args, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
