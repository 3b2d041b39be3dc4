package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/teachctl/internal/logging"
	"github.com/danmuck/teachctl/internal/observability"
)

// OverlayLog copies the [log] keys present in the file onto cfg.
func OverlayLog(meta toml.MetaData, raw LogFile, cfg *logging.Config) {
	if meta.IsDefined("log", "level") {
		cfg.Level = strings.TrimSpace(raw.Level)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Timestamp = raw.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.NoColor = raw.NoColor
	}
	if meta.IsDefined("log", "json") {
		cfg.JSON = raw.JSON
	}
	if meta.IsDefined("log", "file") {
		cfg.File = strings.TrimSpace(raw.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.MaxSizeMB = raw.MaxSizeMB
	}
	if meta.IsDefined("log", "max_backups") {
		cfg.MaxBackups = raw.MaxBackups
	}
	if meta.IsDefined("log", "max_age_days") {
		cfg.MaxAgeDays = raw.MaxAgeDays
	}
}

// OverlayTracing copies the [tracing] keys present in the file onto cfg.
func OverlayTracing(meta toml.MetaData, raw TracingFile, cfg *observability.TracingConfig) {
	if meta.IsDefined("tracing", "endpoint") {
		cfg.Endpoint = strings.TrimSpace(raw.Endpoint)
	}
	if meta.IsDefined("tracing", "sample_ratio") {
		cfg.SampleRatio = raw.SampleRatio
	}
}

// OverlayString sets *dst when key is present, ignoring blank values.
func OverlayString(meta toml.MetaData, raw string, dst *string, key ...string) {
	if !meta.IsDefined(key...) {
		return
	}
	if v := strings.TrimSpace(raw); v != "" {
		*dst = v
	}
}

// NormalizeList trims entries and drops blanks.
func NormalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
