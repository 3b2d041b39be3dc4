package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogLevel     = "TEACHCTL_LOG_LEVEL"
	EnvLogTimestamp = "TEACHCTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "TEACHCTL_LOG_NOCOLOR"
	EnvLogFile      = "TEACHCTL_LOG_FILE"
	EnvLogJSON      = "TEACHCTL_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config controls logger construction. Zero values are filled from the
// profile defaults; env overrides are applied last.
type Config struct {
	Level     string `toml:"level" env:"TEACHCTL_LOG_LEVEL"`
	Timestamp bool   `toml:"timestamp" env:"TEACHCTL_LOG_TIMESTAMP"`
	NoColor   bool   `toml:"no_color" env:"TEACHCTL_LOG_NOCOLOR"`
	JSON      bool   `toml:"json" env:"TEACHCTL_LOG_JSON"`

	// File switches output to a rotating file sink.
	File       string `toml:"file" env:"TEACHCTL_LOG_FILE"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// DefaultConfig returns the baseline for a profile.
func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{
			Level:     "debug",
			Timestamp: false,
			NoColor:   true,
		}
	default:
		return Config{
			Level:      "info",
			Timestamp:  true,
			NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		}
	}
}

// ApplyEnv overlays TEACHCTL_LOG_* variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("logging: parse env: %w", err)
	}
	return nil
}

// New builds a logger from cfg without touching the global logger.
func New(cfg Config, app string) (zerolog.Logger, io.Closer, error) {
	level, ok := ParseLevel(cfg.Level)
	if !ok && strings.TrimSpace(cfg.Level) != "" {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("logging: unknown level %q", cfg.Level)
	}

	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if path := strings.TrimSpace(cfg.File); path != "" {
		sink := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out, closer = sink, sink
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:          out,
			NoColor:      cfg.NoColor || strings.TrimSpace(cfg.File) != "",
			TimeFormat:   time.RFC3339,
			PartsExclude: excludedParts(cfg),
		}
	}

	ctx := zerolog.New(out).Level(level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if app != "" {
		ctx = ctx.Str("app", app)
	}
	return ctx.Logger(), closer, nil
}

// Configure builds the process logger and installs it as the zerolog global.
func Configure(cfg Config, app string) (zerolog.Logger, io.Closer, error) {
	if err := ApplyEnv(&cfg); err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	logger, closer, err := New(cfg, app)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	log.Logger = logger
	return logger, closer, nil
}

func excludedParts(cfg Config) []string {
	if cfg.Timestamp {
		return nil
	}
	return []string{zerolog.TimestampFieldName}
}

// ParseLevel maps operator-facing level names to zerolog levels.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
