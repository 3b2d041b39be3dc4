package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/danmuck/teachctl/internal/pose"
	"github.com/danmuck/teachctl/internal/testutil/testlog"
)

func seededCache(positions ...float64) *pose.Cache {
	c := pose.NewCache("base_link", nil)
	c.Update(positions)
	return c
}

func TestMatchBuildsGoalFromCachedPose(t *testing.T) {
	logger := testlog.Start(t)
	cache := seededCache(0.1, 0.2, 0.3, 0.4, 0.5, 0.6)
	action := &fakeAction{
		name:   "ur_control",
		handle: &fakeHandle{id: "goal.1", result: GoalResult{Status: GoalSucceeded}},
	}
	m := NewActionMatcher(action, cache, MatchConfig{}, logger)

	out := m.Match(context.Background())
	if !out.OK() {
		t.Fatalf("expected success, got %+v", out.Failure)
	}
	goals := action.sent()
	if len(goals) != 1 {
		t.Fatalf("expected one goal, got %d", len(goals))
	}
	goal := goals[0]
	if !slices.Equal(goal.Positions, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}) {
		t.Fatalf("unexpected positions: %v", goal.Positions)
	}
	if goal.Command != "move_j" || !goal.UsePositions {
		t.Fatalf("unexpected command fields: %+v", goal)
	}
	if goal.Velocity != 0.1 || goal.Acceleration != 0.1 {
		t.Fatalf("unexpected velocity/acceleration: %v/%v", goal.Velocity, goal.Acceleration)
	}
	if out.GoalID != "goal.1" || !out.Accepted || out.Result == nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestMatchUsesSnapshotReadAtCallStart(t *testing.T) {
	logger := testlog.Start(t)
	cache := seededCache(1, 1, 1, 1, 1, 1)
	action := &fakeAction{
		name:   "ur_control",
		handle: &fakeHandle{id: "goal.1", result: GoalResult{Status: GoalSucceeded}},
	}
	action.onSend = func() { cache.Update([]float64{2, 2, 2, 2, 2, 2}) }
	m := NewActionMatcher(action, cache, MatchConfig{}, logger)

	out := m.Match(context.Background())
	if !slices.Equal(out.Goal.Positions, []float64{1, 1, 1, 1, 1, 1}) {
		t.Fatalf("goal should carry the pre-update snapshot, got %v", out.Goal.Positions)
	}
	if !slices.Equal(action.sent()[0].Positions, []float64{1, 1, 1, 1, 1, 1}) {
		t.Fatalf("submitted goal should carry the pre-update snapshot")
	}
	if cache.Read().Positions[0] != 2 {
		t.Fatalf("cache should hold the later update")
	}
}

func TestMatchAbortedIsSuccess(t *testing.T) {
	logger := testlog.Start(t)
	action := &fakeAction{
		name:   "ur_control",
		handle: &fakeHandle{id: "goal.1", result: GoalResult{Status: GoalAborted, Message: "preempted"}},
	}
	out := NewActionMatcher(action, seededCache(0, 0, 0, 0, 0, 0), MatchConfig{}, logger).Match(context.Background())
	if !out.OK() {
		t.Fatalf("aborted should be success, got %+v", out.Failure)
	}
	if out.Result.Status != GoalAborted || out.Result.Message != "preempted" {
		t.Fatalf("unexpected result: %+v", out.Result)
	}
}

func TestMatchCanceledIsSuccess(t *testing.T) {
	logger := testlog.Start(t)
	action := &fakeAction{
		name:   "ur_control",
		handle: &fakeHandle{id: "goal.1", result: GoalResult{Status: GoalCanceled}},
	}
	out := NewActionMatcher(action, seededCache(0), MatchConfig{}, logger).Match(context.Background())
	if !out.OK() || out.Result.Status != GoalCanceled {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestMatchRejectedYieldsNoResult(t *testing.T) {
	logger := testlog.Start(t)
	action := &fakeAction{
		name:    "ur_control",
		sendErr: fmt.Errorf("%w: bad joint count", ErrGoalRejected),
	}
	out := NewActionMatcher(action, seededCache(0), MatchConfig{}, logger).Match(context.Background())
	if out.OK() || out.Result != nil || out.Accepted {
		t.Fatalf("expected failure without result, got %+v", out)
	}
	if out.Failure.Kind != FailureRejected || out.Failure.Stage != StageSubmit {
		t.Fatalf("unexpected failure: %+v", out.Failure)
	}
}

func TestMatchDispatchFailure(t *testing.T) {
	logger := testlog.Start(t)
	action := &fakeAction{
		name:    "ur_control",
		sendErr: fmt.Errorf("%w: action server unavailable", ErrDispatch),
	}
	out := NewActionMatcher(action, seededCache(0), MatchConfig{}, logger).Match(context.Background())
	if out.OK() || out.Failure.Kind != FailureDispatch || out.Result != nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestMatchTransportFailureWhileAwaiting(t *testing.T) {
	logger := testlog.Start(t)
	action := &fakeAction{
		name:   "ur_control",
		handle: &fakeHandle{id: "goal.1", err: fmt.Errorf("%w: stream reset", ErrTransport)},
	}
	out := NewActionMatcher(action, seededCache(0), MatchConfig{}, logger).Match(context.Background())
	if out.OK() || out.Failure.Kind != FailureTransport || out.Failure.Stage != StageResult {
		t.Fatalf("unexpected outcome: %+v", out.Failure)
	}
	if !out.Accepted || out.Result != nil {
		t.Fatalf("expected accepted goal without result: %+v", out)
	}
}

func TestMatchResultTimeoutCancelsGoal(t *testing.T) {
	logger := testlog.Start(t)
	handle := &fakeHandle{id: "goal.1", block: true}
	action := &fakeAction{name: "ur_control", handle: handle}
	m := NewActionMatcher(action, seededCache(0), MatchConfig{ResultTimeout: 20 * time.Millisecond}, logger)

	out := m.Match(context.Background())
	if out.OK() || out.Failure.Kind != FailureTimeout {
		t.Fatalf("expected timeout failure, got %+v", out.Failure)
	}
	if !handle.wasCanceled() {
		t.Fatalf("expected goal cancel after timeout")
	}
}

func TestMatchDrainsFeedback(t *testing.T) {
	logger := testlog.Start(t)
	feedback := make(chan Feedback, 2)
	feedback <- Feedback{Progress: 0.5}
	feedback <- Feedback{Progress: 1}
	close(feedback)
	action := &fakeAction{
		name:   "ur_control",
		handle: &fakeHandle{id: "goal.1", result: GoalResult{Status: GoalSucceeded}, feedback: feedback},
	}
	out := NewActionMatcher(action, seededCache(0), MatchConfig{}, logger).Match(context.Background())
	if !out.OK() {
		t.Fatalf("unexpected failure: %+v", out.Failure)
	}
}

func TestTriggerMatcher(t *testing.T) {
	logger := testlog.Start(t)

	ok := NewTriggerMatcher(&fakeTrigger{name: "match_ghost", resp: TriggerResponse{Success: true}}, logger)
	if out := ok.Match(context.Background()); !out.OK() || out.Strategy != StrategyTrigger {
		t.Fatalf("expected trigger match success, got %+v", out)
	}

	refused := NewTriggerMatcher(&fakeTrigger{name: "match_ghost", resp: TriggerResponse{Message: "no pose"}}, logger)
	out := refused.Match(context.Background())
	if out.OK() || out.Failure.Kind != FailureLogical || out.Failure.Message != "no pose" {
		t.Fatalf("unexpected outcome: %+v", out.Failure)
	}

	down := NewTriggerMatcher(&fakeTrigger{name: "match_ghost", err: fmt.Errorf("%w: no route", ErrDispatch)}, logger)
	out = down.Match(context.Background())
	if out.OK() || !errors.Is(out.Failure, ErrDispatch) {
		t.Fatalf("unexpected outcome: %+v", out.Failure)
	}
}
