package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusgate/portalauth/authapi"
	"github.com/campusgate/portalauth/credstore"
	"github.com/campusgate/portalauth/internal/config"
	"github.com/campusgate/portalauth/session"
)

const tokenFileName = "tokens.json"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, args, err := LoadConfig()
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if len(args) == 0 {
		displayAppName(config.New().GetAppName())
		fmt.Println("Usage: authctl [OPTIONS] COMMAND [ARGS...]")
		fmt.Println()
		fmt.Println("Commands: login, verify, no2fa, status, register, complete, refresh,")
		fmt.Println("          whoami, logout, reset-2fa, admin-login")
		return nil
	}

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	backend, err := authapi.NewClient(cfg.BackendURL, authapi.WithLogger(log), authapi.WithTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	mgr, err := session.NewManager(backend, store, session.WithLogger(log))
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := mgr.Restore(ctx); err != nil {
		return err
	}

	app := &App{mgr: mgr, log: log, out: os.Stdout}
	return app.Dispatch(ctx, args[0], args[1:])
}

func buildStore(cfg *Config) (session.Store, error) {
	switch cfg.Storage {
	case "memory":
		return credstore.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return credstore.NewRedisStore(client, cfg.Redis.ContextID)
	default:
		var options []credstore.FileStoreOption
		if cfg.Passphrase != "" {
			options = append(options, credstore.WithPassphrase(cfg.Passphrase))
		}
		return credstore.NewFileStore(filepath.Join(cfg.DataDir, tokenFileName), options...)
	}
}

func displayAppName(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
