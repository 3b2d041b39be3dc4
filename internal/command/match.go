package command

import (
	"context"
	"slices"
	"time"

	"github.com/danmuck/teachctl/internal/observability"
	"github.com/danmuck/teachctl/internal/pose"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MatchCommand      = "move_j"
	MatchVelocity     = 0.1
	MatchAcceleration = 0.1

	StrategyAction  = "action"
	StrategyTrigger = "trigger"
)

// cancelGrace bounds the best-effort goal cancel sent after a result timeout.
const cancelGrace = 5 * time.Second

// MatchGoal asks the controller to move to a joint position.
type MatchGoal struct {
	Command      string
	UsePositions bool
	Positions    []float64
	Velocity     float64
	Acceleration float64
}

// NewMatchGoal builds the fixed move_j goal for a pose snapshot. Positions are
// copied so later cache updates cannot reach the goal.
func NewMatchGoal(snap pose.Snapshot) MatchGoal {
	return MatchGoal{
		Command:      MatchCommand,
		UsePositions: true,
		Positions:    slices.Clone(snap.Positions),
		Velocity:     MatchVelocity,
		Acceleration: MatchAcceleration,
	}
}

// MatchOutcome is the result of one match request. Result is nil when no
// terminal result was obtained.
type MatchOutcome struct {
	Strategy string
	Goal     MatchGoal
	GoalID   string
	Accepted bool
	Result   *GoalResult
	Failure  *Failure
	Duration time.Duration
}

// OK reports whether the match command is considered successful.
func (o MatchOutcome) OK() bool {
	return o.Failure == nil
}

// Matcher sends the robot to the ghost pose. One strategy is chosen per deployment.
type Matcher interface {
	Strategy() string
	Match(ctx context.Context) MatchOutcome
}

// MatchConfig tunes the action strategy. A zero ResultTimeout waits for the
// terminal result indefinitely.
type MatchConfig struct {
	ResultTimeout time.Duration
}

// ActionMatcher drives the goal protocol: submit, await acceptance, await the
// terminal result.
type ActionMatcher struct {
	client ActionClient
	poses  PoseSource
	cfg    MatchConfig
	logger zerolog.Logger
}

var (
	_ Matcher = (*ActionMatcher)(nil)
	_ Matcher = (*TriggerMatcher)(nil)
)

func NewActionMatcher(client ActionClient, poses PoseSource, cfg MatchConfig, logger zerolog.Logger) *ActionMatcher {
	return &ActionMatcher{
		client: client,
		poses:  poses,
		cfg:    cfg,
		logger: logger,
	}
}

func (m *ActionMatcher) Strategy() string {
	return StrategyAction
}

// Match reads the pose once at call start and submits it as a move_j goal.
// Every terminal status, Aborted included, counts as success; only dispatch,
// rejection, and failures while awaiting the result are reported as failures.
func (m *ActionMatcher) Match(ctx context.Context) MatchOutcome {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "command.Match",
		trace.WithAttributes(attribute.String("strategy", StrategyAction)))
	defer span.End()

	snap := m.poses.Read()
	out := MatchOutcome{
		Strategy: StrategyAction,
		Goal:     NewMatchGoal(snap),
	}
	target := m.client.Name()

	handle, err := m.client.SendGoal(ctx, out.Goal)
	if err != nil {
		out.Failure = classify(StageSubmit, target, err)
		return m.finish(span, start, out)
	}
	out.Accepted = true
	out.GoalID = handle.ID()
	span.SetAttributes(attribute.String("goal_id", out.GoalID))
	m.logger.Info().
		Str("action", target).
		Str("goal_id", out.GoalID).
		Uint64("pose_seq", snap.Header.Seq).
		Floats64("positions", out.Goal.Positions).
		Msg("command.Match goal accepted")

	feedbackCtx, stopFeedback := context.WithCancel(ctx)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		m.drainFeedback(feedbackCtx, out.GoalID, handle.Feedback())
	}()
	defer func() {
		stopFeedback()
		<-drained
	}()

	waitCtx := ctx
	if m.cfg.ResultTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.cfg.ResultTimeout)
		defer cancel()
	}

	res, err := handle.Result(waitCtx)
	if err != nil {
		out.Failure = classify(StageResult, target, err)
		if out.Failure.Kind == FailureTimeout {
			m.cancelGoal(ctx, handle)
		}
		return m.finish(span, start, out)
	}
	out.Result = &res
	observability.RecordGoalTerminal(string(res.Status))

	switch res.Status {
	case GoalAborted:
		m.logger.Info().
			Str("goal_id", out.GoalID).
			Str("message", res.Message).
			Msg("command.Match goal aborted")
	default:
		m.logger.Info().
			Str("goal_id", out.GoalID).
			Str("status", string(res.Status)).
			Str("message", res.Message).
			Msg("command.Match goal finished")
	}
	return m.finish(span, start, out)
}

func (m *ActionMatcher) finish(span trace.Span, start time.Time, out MatchOutcome) MatchOutcome {
	out.Duration = time.Since(start)
	observability.RecordCommand(StageMatch, out.OK(), out.Duration)
	if out.OK() {
		return out
	}
	span.SetStatus(codes.Error, out.Failure.Error())
	m.logger.Error().
		Str("stage", out.Failure.Stage).
		Str("target", out.Failure.Target).
		Str("kind", string(out.Failure.Kind)).
		Str("goal_id", out.GoalID).
		AnErr("cause", out.Failure.Err).
		Msg("command.Match failed")
	return out
}

func (m *ActionMatcher) drainFeedback(ctx context.Context, goalID string, feedback <-chan Feedback) {
	for {
		select {
		case <-ctx.Done():
			return
		case fb, ok := <-feedback:
			if !ok {
				return
			}
			m.logger.Debug().
				Str("goal_id", goalID).
				Float64("progress", fb.Progress).
				Msg("command.Match feedback")
		}
	}
}

func (m *ActionMatcher) cancelGoal(ctx context.Context, handle GoalHandle) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelGrace)
	defer cancel()
	if err := handle.Cancel(cctx); err != nil {
		m.logger.Warn().Err(err).Str("goal_id", handle.ID()).Msg("command.Match cancel after timeout failed")
	}
}

// TriggerMatcher asks a match service to move the robot with a single
// request/response call; the service resolves the ghost pose itself.
type TriggerMatcher struct {
	client TriggerClient
	logger zerolog.Logger
}

func NewTriggerMatcher(client TriggerClient, logger zerolog.Logger) *TriggerMatcher {
	return &TriggerMatcher{client: client, logger: logger}
}

func (m *TriggerMatcher) Strategy() string {
	return StrategyTrigger
}

func (m *TriggerMatcher) Match(ctx context.Context) MatchOutcome {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "command.Match",
		trace.WithAttributes(attribute.String("strategy", StrategyTrigger)))
	defer span.End()

	out := MatchOutcome{Strategy: StrategyTrigger}
	target := m.client.Name()
	resp, err := m.client.Call(ctx)
	switch {
	case err != nil:
		out.Failure = classify(StageMatch, target, err)
	case !resp.Success:
		out.Failure = logicalFailure(StageMatch, target, resp.Message)
	default:
		out.Accepted = true
		out.Result = &GoalResult{Status: GoalSucceeded, Message: resp.Message}
	}
	out.Duration = time.Since(start)
	observability.RecordCommand(StageMatch, out.OK(), out.Duration)

	if out.OK() {
		m.logger.Info().Str("service", target).Str("message", resp.Message).Msg("command.Match matched")
		return out
	}
	span.SetStatus(codes.Error, out.Failure.Error())
	m.logger.Error().
		Str("service", target).
		Str("kind", string(out.Failure.Kind)).
		Str("message", out.Failure.Message).
		AnErr("cause", out.Failure.Err).
		Msg("command.Match failed")
	return out
}
