package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/danmuck/teachctl/internal/logging"
	"github.com/danmuck/teachctl/internal/observability"
	"github.com/danmuck/teachctl/internal/operator"
	"github.com/gin-gonic/gin"
)

const defaultConfigPath = "cmd/teachctl/config.toml"

func main() {
	path := flag.String("config", defaultConfigPath, "teachctl config file (TOML)")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintf(os.Stderr, "teachctl: %v\n", err)
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

	logger, closer, err := logging.Configure(cfg.LogConfig(), "teachctl")
	if err != nil {
		return err
	}
	defer closer.Close()

	observability.RegisterMetrics()
	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.NodeName, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn().Err(err).Msg("teachctl tracing shutdown")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	return operator.NewServiceWithConfig(cfg, logger).Run()
}

// loadOrDefault falls back to defaults only when the default path is absent.
func loadOrDefault(path string) (operator.ServiceConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		return operator.DefaultServiceConfig(), nil
	}
	return loadServiceConfig(path)
}
