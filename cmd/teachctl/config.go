package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/teachctl/internal/config"
	"github.com/danmuck/teachctl/internal/operator"
)

func loadServiceConfig(path string) (operator.ServiceConfig, error) {
	cfg := operator.DefaultServiceConfig()

	var raw config.OperatorFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return operator.ServiceConfig{}, fmt.Errorf("load teachctl config: %w", err)
	}

	config.OverlayString(meta, raw.NodeName, &cfg.NodeName, "node_name")
	config.OverlayString(meta, raw.Target, &cfg.Target, "target")
	config.OverlayString(meta, raw.FrameID, &cfg.FrameID, "frame_id")
	config.OverlayString(meta, raw.MatchStrategy, &cfg.MatchStrategy, "match_strategy")

	if meta.IsDefined("mode") {
		cfg.Mode = operator.Mode(strings.ToLower(strings.TrimSpace(raw.Mode)))
	}

	if meta.IsDefined("joint_names") {
		cfg.JointNames = config.NormalizeList(raw.JointNames)
	}

	if meta.IsDefined("spin_period") {
		d, err := config.ParseDuration("spin_period", raw.SpinPeriod)
		if err != nil {
			return operator.ServiceConfig{}, err
		}
		cfg.SpinPeriod = d
	}

	if meta.IsDefined("reset_timeout") {
		d, err := config.ParseDuration("reset_timeout", raw.ResetTimeout)
		if err != nil {
			return operator.ServiceConfig{}, err
		}
		cfg.ResetTimeout = d
	}

	if meta.IsDefined("match_result_timeout") {
		d, err := config.ParseDuration("match_result_timeout", raw.MatchResultTimeout)
		if err != nil {
			return operator.ServiceConfig{}, err
		}
		cfg.MatchResultTimeout = d
	}

	e := raw.Endpoints
	config.OverlayString(meta, e.ResetGhost, &cfg.Endpoints.ResetGhost, "endpoints", "reset_ghost")
	config.OverlayString(meta, e.ResetMarker, &cfg.Endpoints.ResetMarker, "endpoints", "reset_marker")
	config.OverlayString(meta, e.MatchGhost, &cfg.Endpoints.MatchGhost, "endpoints", "match_ghost")
	config.OverlayString(meta, e.Control, &cfg.Endpoints.Control, "endpoints", "control")
	config.OverlayString(meta, e.GhostTopic, &cfg.Endpoints.GhostTopic, "endpoints", "ghost_topic")

	if meta.IsDefined("admin", "listen") {
		cfg.Admin.ListenAddr = strings.TrimSpace(raw.Admin.Listen)
	}
	if meta.IsDefined("admin", "token") {
		cfg.Admin.Token = strings.TrimSpace(raw.Admin.Token)
	}
	if meta.IsDefined("admin", "jwt_secret") {
		cfg.Admin.JWTSecret = raw.Admin.JWTSecret
	}
	if meta.IsDefined("admin", "jwt_issuer") {
		cfg.Admin.JWTIssuer = strings.TrimSpace(raw.Admin.JWTIssuer)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CORSOrigins = config.NormalizeList(raw.Admin.CORSOrigins)
	}

	config.OverlayLog(meta, raw.Log, &cfg.Log)
	config.OverlayTracing(meta, raw.Tracing, &cfg.Tracing)

	return cfg, nil
}
