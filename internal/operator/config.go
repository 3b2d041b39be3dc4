package operator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/logging"
	"github.com/danmuck/teachctl/internal/observability"
)

var (
	ErrTargetRequired    = errors.New("operator: target address required")
	ErrInvalidSpinPeriod = errors.New("operator: invalid spin period")
	ErrUnknownMode       = errors.New("operator: unknown mode")
	ErrUnknownStrategy   = errors.New("operator: unknown match strategy")
	ErrEndpointRequired  = errors.New("operator: endpoint name required")
	ErrNegativeTimeout   = errors.New("operator: timeouts must not be negative")
)

// NodeName is the process identity announced to the cell.
const NodeName = "teaching_tools_ui"

type Mode string

const (
	ModeTUI      Mode = "tui"
	ModeHeadless Mode = "headless"
)

// Endpoints names the services, action, and topic the console talks to.
type Endpoints struct {
	ResetGhost  string
	ResetMarker string
	MatchGhost  string
	Control     string
	GhostTopic  string
}

// AdminConfig enables the HTTP surface when ListenAddr is set. Token and
// JWTSecret are alternatives; either one accepted is enough.
type AdminConfig struct {
	ListenAddr  string
	Token       string
	JWTSecret   string
	JWTIssuer   string
	CORSOrigins []string
}

type ServiceConfig struct {
	NodeName   string
	Target     string
	Mode       Mode
	SpinPeriod time.Duration
	FrameID    string
	JointNames []string

	MatchStrategy      string
	ResetTimeout       time.Duration
	MatchResultTimeout time.Duration

	Endpoints Endpoints
	Admin     AdminConfig
	Log       logging.Config
	Tracing   observability.TracingConfig
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		NodeName:   NodeName,
		Target:     "127.0.0.1:7420",
		Mode:       ModeTUI,
		SpinPeriod: 100 * time.Millisecond,
		FrameID:    "base_link",
		JointNames: []string{
			"shoulder_pan_joint",
			"shoulder_lift_joint",
			"elbow_joint",
			"wrist_1_joint",
			"wrist_2_joint",
			"wrist_3_joint",
		},
		MatchStrategy: command.StrategyAction,
		Endpoints: Endpoints{
			ResetGhost:  "reset_ghost",
			ResetMarker: "reset_teaching_marker",
			MatchGhost:  "match_ghost",
			Control:     "ur_control",
			GhostTopic:  "ghost/joint_states",
		},
		Log: logging.DefaultConfig(logging.ProfileRuntime),
	}
}

// Validate reports the first configuration problem.
func (c ServiceConfig) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return ErrTargetRequired
	}
	if c.SpinPeriod <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSpinPeriod, c.SpinPeriod)
	}
	switch c.Mode {
	case ModeTUI, ModeHeadless:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}
	switch c.MatchStrategy {
	case command.StrategyAction, command.StrategyTrigger:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.MatchStrategy)
	}
	if c.ResetTimeout < 0 || c.MatchResultTimeout < 0 {
		return ErrNegativeTimeout
	}
	e := c.Endpoints
	for name, v := range map[string]string{
		"reset_ghost":  e.ResetGhost,
		"reset_marker": e.ResetMarker,
		"control":      e.Control,
		"ghost_topic":  e.GhostTopic,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrEndpointRequired, name)
		}
	}
	if c.MatchStrategy == command.StrategyTrigger && strings.TrimSpace(e.MatchGhost) == "" {
		return fmt.Errorf("%w: match_ghost", ErrEndpointRequired)
	}
	return nil
}

// DefaultTUILogFile receives logs while the TUI owns the terminal.
const DefaultTUILogFile = "teachctl.log"

// LogConfig returns the logger config for the mode. TUI mode always writes to
// a file.
func (c ServiceConfig) LogConfig() logging.Config {
	out := c.Log
	if c.Mode == ModeTUI && strings.TrimSpace(out.File) == "" {
		out.File = DefaultTUILogFile
	}
	return out
}
