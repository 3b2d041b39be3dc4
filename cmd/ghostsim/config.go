package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/teachctl/internal/config"
	"github.com/danmuck/teachctl/internal/ghostsim"
)

func loadServiceConfig(path string) (ghostsim.ServiceConfig, error) {
	cfg := ghostsim.DefaultServiceConfig()

	var raw config.CellFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ghostsim.ServiceConfig{}, fmt.Errorf("load ghostsim config: %w", err)
	}

	config.OverlayString(meta, raw.Listen, &cfg.ListenAddr, "listen")
	config.OverlayString(meta, raw.FrameID, &cfg.FrameID, "frame_id")

	if meta.IsDefined("joint_names") {
		cfg.JointNames = config.NormalizeList(raw.JointNames)
	}
	if meta.IsDefined("home_pose") {
		cfg.HomePose = append([]float64(nil), raw.HomePose...)
	}
	if meta.IsDefined("drift") {
		cfg.Drift = raw.Drift
	}
	if meta.IsDefined("marker_jammed") {
		cfg.MarkerJammed = raw.MarkerJammed
	}
	if meta.IsDefined("joint_speed") {
		cfg.Controller.JointSpeed = raw.JointSpeed
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"publish_interval", raw.PublishInterval, &cfg.PublishInterval},
		{"heartbeat_interval", raw.HeartbeatInterval, &cfg.HeartbeatInterval},
		{"feedback_interval", raw.FeedbackInterval, &cfg.Controller.FeedbackInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := config.ParseDuration(d.key, d.raw)
		if err != nil {
			return ghostsim.ServiceConfig{}, err
		}
		*d.dst = v
	}

	e := raw.Endpoints
	config.OverlayString(meta, e.ResetGhost, &cfg.Names.ResetGhost, "endpoints", "reset_ghost")
	config.OverlayString(meta, e.ResetMarker, &cfg.Names.ResetMarker, "endpoints", "reset_marker")
	config.OverlayString(meta, e.MatchGhost, &cfg.Names.MatchGhost, "endpoints", "match_ghost")
	config.OverlayString(meta, e.Control, &cfg.Names.Control, "endpoints", "control")
	config.OverlayString(meta, e.GhostTopic, &cfg.Names.GhostTopic, "endpoints", "ghost_topic")

	config.OverlayLog(meta, raw.Log, &cfg.Log)
	config.OverlayTracing(meta, raw.Tracing, &cfg.Tracing)

	return cfg, nil
}
