package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/teachctl/internal/config"
)

func TestLoadServiceConfigExample(t *testing.T) {
	cfg, err := loadServiceConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7420" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if len(cfg.HomePose) != 6 || len(cfg.JointNames) != 6 {
		t.Fatalf("unexpected pose shape: %v / %v", cfg.HomePose, cfg.JointNames)
	}
	if cfg.PublishInterval != 100*time.Millisecond || cfg.HeartbeatInterval != 5*time.Second {
		t.Fatalf("unexpected intervals: %v / %v", cfg.PublishInterval, cfg.HeartbeatInterval)
	}
	if cfg.Controller.FeedbackInterval != 50*time.Millisecond || cfg.Controller.JointSpeed != 1.0 {
		t.Fatalf("unexpected controller config: %+v", cfg.Controller)
	}
	if cfg.Names.Control != "ur_control" || cfg.Names.ResetMarker != "reset_teaching_marker" {
		t.Fatalf("unexpected names: %+v", cfg.Names)
	}
	if cfg.MarkerJammed {
		t.Fatal("expected marker to start unjammed")
	}
	if err := config.Validate(config.KindCell, "ex.config.toml"); err != nil {
		t.Fatalf("strict validation: %v", err)
	}
}

func TestLoadServiceConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
listen = "0.0.0.0:9000"
marker_jammed = true
feedback_interval = "10ms"

[endpoints]
ghost_topic = "ghost/state"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" || !cfg.MarkerJammed {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Controller.FeedbackInterval != 10*time.Millisecond {
		t.Fatalf("unexpected feedback interval: %v", cfg.Controller.FeedbackInterval)
	}
	if cfg.Names.GhostTopic != "ghost/state" || cfg.Names.Control != "ur_control" {
		t.Fatalf("unexpected names: %+v", cfg.Names)
	}
	if cfg.PublishInterval != 100*time.Millisecond {
		t.Fatalf("expected default publish interval, got %v", cfg.PublishInterval)
	}
}

func TestLoadServiceConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`heartbeat_interval = "-"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadServiceConfig(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}
