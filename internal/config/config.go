// Package config holds the on-disk TOML shapes of both binaries, their
// starter templates, and a strict validator that rejects unknown keys.
//
// Loading with defaults lives next to each binary (cmd/*/config.go); this
// package only knows the file layout.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var ErrUnknownKind = errors.New("config: unknown kind")

type Kind string

const (
	KindOperator Kind = "teachctl"
	KindCell     Kind = "ghostsim"
)

func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindOperator, "operator":
		return KindOperator, nil
	case KindCell, "cell":
		return KindCell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

type EndpointsFile struct {
	ResetGhost  string `toml:"reset_ghost"`
	ResetMarker string `toml:"reset_marker"`
	MatchGhost  string `toml:"match_ghost"`
	Control     string `toml:"control"`
	GhostTopic  string `toml:"ghost_topic"`
}

type LogFile struct {
	Level      string `toml:"level"`
	Timestamp  bool   `toml:"timestamp"`
	NoColor    bool   `toml:"no_color"`
	JSON       bool   `toml:"json"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type TracingFile struct {
	Endpoint    string  `toml:"endpoint"`
	SampleRatio float64 `toml:"sample_ratio"`
}

type AdminFile struct {
	Listen      string   `toml:"listen"`
	Token       string   `toml:"token"`
	JWTSecret   string   `toml:"jwt_secret"`
	JWTIssuer   string   `toml:"jwt_issuer"`
	CORSOrigins []string `toml:"cors_origins"`
}

// OperatorFile is the teachctl config file.
type OperatorFile struct {
	NodeName           string        `toml:"node_name"`
	Target             string        `toml:"target"`
	Mode               string        `toml:"mode"`
	SpinPeriod         string        `toml:"spin_period"`
	FrameID            string        `toml:"frame_id"`
	JointNames         []string      `toml:"joint_names"`
	MatchStrategy      string        `toml:"match_strategy"`
	ResetTimeout       string        `toml:"reset_timeout"`
	MatchResultTimeout string        `toml:"match_result_timeout"`
	Endpoints          EndpointsFile `toml:"endpoints"`
	Admin              AdminFile     `toml:"admin"`
	Log                LogFile       `toml:"log"`
	Tracing            TracingFile   `toml:"tracing"`
}

// CellFile is the ghostsim config file.
type CellFile struct {
	Listen            string        `toml:"listen"`
	FrameID           string        `toml:"frame_id"`
	JointNames        []string      `toml:"joint_names"`
	HomePose          []float64     `toml:"home_pose"`
	Drift             float64       `toml:"drift"`
	PublishInterval   string        `toml:"publish_interval"`
	HeartbeatInterval string        `toml:"heartbeat_interval"`
	MarkerJammed      bool          `toml:"marker_jammed"`
	JointSpeed        float64       `toml:"joint_speed"`
	FeedbackInterval  string        `toml:"feedback_interval"`
	Endpoints         EndpointsFile `toml:"endpoints"`
	Log               LogFile       `toml:"log"`
	Tracing           TracingFile   `toml:"tracing"`
}

// Validate strictly decodes the file at path as kind. Unknown keys and
// malformed durations are errors.
func Validate(kind Kind, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return ValidateBytes(kind, data)
}

func ValidateBytes(kind Kind, data []byte) error {
	var durations map[string]string
	switch kind {
	case KindOperator:
		var f OperatorFile
		if err := decodeStrict(data, &f); err != nil {
			return err
		}
		durations = map[string]string{
			"spin_period":          f.SpinPeriod,
			"reset_timeout":        f.ResetTimeout,
			"match_result_timeout": f.MatchResultTimeout,
		}
	case KindCell:
		var f CellFile
		if err := decodeStrict(data, &f); err != nil {
			return err
		}
		if len(f.HomePose) > 0 && len(f.JointNames) > 0 && len(f.HomePose) != len(f.JointNames) {
			return fmt.Errorf("config: home_pose has %d joints, joint_names has %d", len(f.HomePose), len(f.JointNames))
		}
		durations = map[string]string{
			"publish_interval":   f.PublishInterval,
			"heartbeat_interval": f.HeartbeatInterval,
			"feedback_interval":  f.FeedbackInterval,
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	for key, raw := range durations {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := ParseDuration(key, raw); err != nil {
			return err
		}
	}
	return nil
}

func decodeStrict(data []byte, out any) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config: unknown keys:\n%s", strict.String())
		}
		return fmt.Errorf("config parse failed: %w", err)
	}
	return nil
}

// ParseDuration parses a Go duration for key.
func ParseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
