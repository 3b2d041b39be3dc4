package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevelAliases(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":       zerolog.TraceLevel,
		"diagnostics": zerolog.TraceLevel,
		" DEBUG ":     zerolog.DebugLevel,
		"warning":     zerolog.WarnLevel,
		"off":         zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}

func TestApplyEnvOverridesProfileDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogTimestamp, "true")

	cfg := DefaultConfig(ProfileTest)
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Level != "warn" {
		t.Fatalf("unexpected level: %q", cfg.Level)
	}
	if !cfg.Timestamp {
		t.Fatalf("expected timestamp override")
	}
	if !cfg.NoColor {
		t.Fatalf("expected profile no_color to survive unset env")
	}
}

func TestApplyEnvRejectsMalformedBool(t *testing.T) {
	t.Setenv(EnvLogJSON, "maybe")
	cfg := DefaultConfig(ProfileRuntime)
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig(ProfileTest)
	cfg.Level = "loud"
	if _, _, err := New(cfg, "teachctl"); err == nil {
		t.Fatalf("expected unknown level error")
	}
}

func TestNewWritesToRotatingFile(t *testing.T) {
	cfg := DefaultConfig(ProfileTest)
	cfg.JSON = true
	cfg.File = filepath.Join(t.TempDir(), "teachctl.log")

	logger, closer, err := New(cfg, "teachctl")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info().Str("target", "ghost").Msg("reset sent")
	if err := closer.Close(); err != nil {
		t.Fatalf("close sink: %v", err)
	}
}

func TestNewConsoleHonoursLevel(t *testing.T) {
	cfg := DefaultConfig(ProfileTest)
	cfg.Level = "error"
	logger, _, err := New(cfg, "")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Msg("hidden")
	logger.Error().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
