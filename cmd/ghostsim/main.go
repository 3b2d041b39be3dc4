package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/danmuck/teachctl/internal/ghostsim"
	"github.com/danmuck/teachctl/internal/logging"
	"github.com/danmuck/teachctl/internal/observability"
)

const defaultConfigPath = "cmd/ghostsim/config.toml"

func main() {
	path := flag.String("config", defaultConfigPath, "ghostsim config file (TOML)")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintf(os.Stderr, "ghostsim: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := loadOrDefault(path)
	if err != nil {
		return err
	}
	if err := env.Parse(&cfg.Tracing); err != nil {
		return fmt.Errorf("parse tracing env: %w", err)
	}

	logger, closer, err := logging.Configure(cfg.Log, "ghostsim")
	if err != nil {
		return err
	}
	defer closer.Close()

	observability.RegisterMetrics()
	shutdownTracing, err := observability.SetupTracing(context.Background(), "ghostsim", cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn().Err(err).Msg("ghostsim tracing shutdown")
		}
	}()

	return ghostsim.NewServiceWithConfig(cfg, logger).Run()
}

func loadOrDefault(path string) (ghostsim.ServiceConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		return ghostsim.DefaultServiceConfig(), nil
	}
	return loadServiceConfig(path)
}
