package ghostsim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/testutil/testlog"
	"github.com/danmuck/teachctl/internal/transport"
)

func newTestController(t *testing.T, speed float64) *Controller {
	t.Helper()
	return NewController([]float64{0, 0, 0, 0, 0, 0}, ControllerConfig{
		JointSpeed:       speed,
		FeedbackInterval: 5 * time.Millisecond,
	}, testlog.Start(t))
}

func validGoal() transport.Goal {
	return transport.Goal{
		Command:           command.MatchCommand,
		UseJointPositions: true,
		JointPositions:    []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		Velocity:          command.MatchVelocity,
		Acceleration:      command.MatchAcceleration,
	}
}

func TestControllerValidate(t *testing.T) {
	c := newTestController(t, 100)

	if err := c.Validate(validGoal()); err != nil {
		t.Fatalf("valid goal rejected: %v", err)
	}

	bad := validGoal()
	bad.Command = "move_l"
	if err := c.Validate(bad); !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("expected ErrUnsupportedCommand, got %v", err)
	}

	bad = validGoal()
	bad.UseJointPositions = false
	if err := c.Validate(bad); !errors.Is(err, ErrNoJointPositions) {
		t.Fatalf("expected ErrNoJointPositions, got %v", err)
	}

	bad = validGoal()
	bad.JointPositions = bad.JointPositions[:5]
	if err := c.Validate(bad); !errors.Is(err, ErrJointCount) {
		t.Fatalf("expected ErrJointCount, got %v", err)
	}

	bad = validGoal()
	bad.Velocity = 0
	if err := c.Validate(bad); !errors.Is(err, ErrLimitOutOfRange) {
		t.Fatalf("expected ErrLimitOutOfRange, got %v", err)
	}

	bad = validGoal()
	bad.JointPositions[2] = 1e300
	if err := c.Validate(bad); !errors.Is(err, ErrJointOutOfRange) {
		t.Fatalf("expected ErrJointOutOfRange, got %v", err)
	}
}

func TestMoveDurationIsCapped(t *testing.T) {
	if got := moveDuration(1e300, 1e-9); got != maxMoveDuration {
		t.Fatalf("expected capped duration, got %v", got)
	}
	if got := moveDuration(0.5, 1.0); got != 500*time.Millisecond {
		t.Fatalf("unexpected duration: %v", got)
	}
	if got := moveDuration(1, 0); got != 0 {
		t.Fatalf("zero speed must move instantly, got %v", got)
	}
}

func TestControllerExecuteReachesTarget(t *testing.T) {
	c := newTestController(t, 100)
	var last transport.FeedbackMsg
	var count int

	res := c.Execute(context.Background(), validGoal(), func(fb transport.FeedbackMsg) {
		last = fb
		count++
	})
	if res.Status != command.GoalSucceeded {
		t.Fatalf("expected success, got %+v", res)
	}
	if count == 0 || last.Progress != 1 {
		t.Fatalf("expected final feedback at progress 1, got count=%d last=%+v", count, last)
	}
	joints := c.Joints()
	for i, want := range validGoal().JointPositions {
		if joints[i] != want {
			t.Fatalf("joint %d = %v, want %v", i, joints[i], want)
		}
	}
}

func TestControllerExecuteReportsCancelCause(t *testing.T) {
	c := newTestController(t, 0.01)

	for _, tc := range []struct {
		cause error
		want  command.GoalStatus
	}{
		{transport.ErrGoalCanceled, command.GoalCanceled},
		{transport.ErrPreempted, command.GoalAborted},
	} {
		ctx, cancel := context.WithCancelCause(context.Background())
		time.AfterFunc(20*time.Millisecond, func() { cancel(tc.cause) })

		res := c.Execute(ctx, validGoal(), func(transport.FeedbackMsg) {})
		if res.Status != tc.want {
			t.Fatalf("cause %v: expected %s, got %+v", tc.cause, tc.want, res)
		}
	}
}
