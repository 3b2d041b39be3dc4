package ghostsim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/transport"
	"github.com/rs/zerolog"
)

var (
	ErrUnsupportedCommand = errors.New("ghostsim: unsupported command")
	ErrJointCount         = errors.New("ghostsim: joint count mismatch")
	ErrLimitOutOfRange    = errors.New("ghostsim: velocity/acceleration out of range")
	ErrNoJointPositions   = errors.New("ghostsim: use_joint_positions is required")
	ErrJointOutOfRange    = errors.New("ghostsim: joint position out of range")
)

const (
	// MaxJointPosition bounds every target joint, in radians (UR joints turn +-2pi).
	MaxJointPosition = 2 * math.Pi
	// maxMoveDuration caps a single simulated move.
	maxMoveDuration = 10 * time.Minute
)

// ControllerConfig tunes the simulated arm.
type ControllerConfig struct {
	// JointSpeed is the joint speed in rad/s at velocity scale 1.0.
	JointSpeed       float64
	FeedbackInterval time.Duration
}

// Controller simulates the arm behind the ur_control action. One move runs
// at a time.
type Controller struct {
	cfg    ControllerConfig
	logger zerolog.Logger

	moveMu sync.Mutex

	mu    sync.RWMutex
	joint []float64
}

var _ transport.GoalExecutor = (*Controller)(nil)

func NewController(start []float64, cfg ControllerConfig, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger,
		joint:  slices.Clone(start),
	}
}

// Joints returns a copy of the arm's current joint positions.
func (c *Controller) Joints() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.joint)
}

func (c *Controller) Validate(goal transport.Goal) error {
	if goal.Command != command.MatchCommand {
		return fmt.Errorf("%w: %q", ErrUnsupportedCommand, goal.Command)
	}
	if !goal.UseJointPositions {
		return ErrNoJointPositions
	}
	if n := len(c.Joints()); len(goal.JointPositions) != n {
		return fmt.Errorf("%w: got %d want %d", ErrJointCount, len(goal.JointPositions), n)
	}
	if !inUnitRange(goal.Velocity) || !inUnitRange(goal.Acceleration) {
		return fmt.Errorf("%w: velocity=%g acceleration=%g", ErrLimitOutOfRange, goal.Velocity, goal.Acceleration)
	}
	for i, p := range goal.JointPositions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("ghostsim: joint %d is not finite", i)
		}
		if math.Abs(p) > MaxJointPosition {
			return fmt.Errorf("%w: joint %d = %g", ErrJointOutOfRange, i, p)
		}
	}
	return nil
}

func (c *Controller) Execute(ctx context.Context, goal transport.Goal, feedback func(transport.FeedbackMsg)) transport.ResultReply {
	err := c.Move(ctx, goal.JointPositions, goal.Velocity, func(progress float64, joints []float64) {
		feedback(transport.FeedbackMsg{Progress: progress, Positions: joints})
	})
	switch {
	case err == nil:
		return transport.ResultReply{Status: command.GoalSucceeded, Message: "reached target"}
	case errors.Is(err, transport.ErrGoalCanceled):
		return transport.ResultReply{Status: command.GoalCanceled, Message: "canceled"}
	case errors.Is(err, transport.ErrPreempted):
		return transport.ResultReply{Status: command.GoalAborted, Message: "preempted by newer goal"}
	default:
		return transport.ResultReply{Status: command.GoalAborted, Message: err.Error()}
	}
}

// Move interpolates the arm linearly to target. The duration is set by the
// largest joint distance at JointSpeed scaled by velocity. On cancellation the
// arm stays where it stopped and the cancel cause is returned.
func (c *Controller) Move(ctx context.Context, target []float64, velocity float64, progress func(float64, []float64)) error {
	c.moveMu.Lock()
	defer c.moveMu.Unlock()

	from := c.Joints()
	if len(target) != len(from) {
		return fmt.Errorf("%w: got %d want %d", ErrJointCount, len(target), len(from))
	}
	var dist float64
	for i := range from {
		dist = max(dist, math.Abs(target[i]-from[i]))
	}
	duration := moveDuration(dist, c.cfg.JointSpeed*velocity)
	c.logger.Debug().
		Floats64("from", from).
		Floats64("to", target).
		Dur("duration", duration).
		Msg("ghostsim.Controller move started")

	interval := c.cfg.FeedbackInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()

	for {
		frac := 1.0
		if duration > 0 {
			frac = min(1, float64(time.Since(start))/float64(duration))
		}
		joints := lerp(from, target, frac)
		c.mu.Lock()
		c.joint = joints
		c.mu.Unlock()
		if progress != nil {
			progress(frac, slices.Clone(joints))
		}
		if frac >= 1 {
			return nil
		}

		select {
		case <-ctx.Done():
			cause := context.Cause(ctx)
			c.logger.Debug().Err(cause).Float64("progress", frac).Msg("ghostsim.Controller move interrupted")
			return cause
		case <-ticker.C:
		}
	}
}

func lerp(from, to []float64, frac float64) []float64 {
	out := make([]float64, len(from))
	for i := range from {
		out[i] = from[i] + (to[i]-from[i])*frac
	}
	return out
}

func inUnitRange(v float64) bool {
	return v > 0 && v <= 1
}

// moveDuration is dist/speed seconds, capped at maxMoveDuration. A
// non-positive speed moves instantly.
func moveDuration(dist, speed float64) time.Duration {
	if speed <= 0 || dist <= 0 {
		return 0
	}
	secs := dist / speed
	if math.IsNaN(secs) || secs >= maxMoveDuration.Seconds() {
		return maxMoveDuration
	}
	return time.Duration(secs * float64(time.Second))
}
