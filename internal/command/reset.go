package command

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/teachctl/internal/observability"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	TargetGhost  = "ghost"
	TargetMarker = "marker"
)

var tracer = otel.Tracer("github.com/danmuck/teachctl/internal/command")

// TargetResult is the per-target record of one reset.
type TargetResult struct {
	Target  string
	Service string

	// Observed is true once a response arrived.
	Observed bool
	Success  bool
	Message  string

	// Abandoned is set when a sibling's transport failure cancelled this call.
	Abandoned bool
	Failure   *Failure
}

// Failed reports whether this target contributed to an overall failure.
func (r TargetResult) Failed() bool {
	if r.Failure != nil {
		return true
	}
	return r.Observed && !r.Success
}

// ResetOutcome is the AND-joined result of the ghost and marker resets.
type ResetOutcome struct {
	Targets  []TargetResult
	Failure  *Failure
	Duration time.Duration
}

// OK reports overall success.
func (o ResetOutcome) OK() bool {
	return o.Failure == nil
}

// FailedTargets lists every target that failed, in target order.
func (o ResetOutcome) FailedTargets() []string {
	var out []string
	for _, r := range o.Targets {
		if r.Failed() {
			out = append(out, r.Target)
		}
	}
	return out
}

// Target returns the record for one target name.
func (o ResetOutcome) Target(name string) (TargetResult, bool) {
	for _, r := range o.Targets {
		if r.Target == name {
			return r, true
		}
	}
	return TargetResult{}, false
}

// ResetConfig tunes the reset orchestrator. A zero Timeout waits indefinitely.
type ResetConfig struct {
	Timeout time.Duration
}

type resetTarget struct {
	name   string
	client TriggerClient
}

// ResetOrchestrator fans out the ghost and marker resets and joins them.
// It keeps no state between calls, so repeated resets are independent.
type ResetOrchestrator struct {
	targets []resetTarget
	cfg     ResetConfig
	logger  zerolog.Logger
}

func NewResetOrchestrator(ghost, marker TriggerClient, cfg ResetConfig, logger zerolog.Logger) *ResetOrchestrator {
	return &ResetOrchestrator{
		targets: []resetTarget{
			{name: TargetGhost, client: ghost},
			{name: TargetMarker, client: marker},
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Reset issues both trigger calls concurrently. It waits for both responses
// unless one call fails at the transport level, in which case the sibling is
// cancelled and the first transport failure is reported.
func (o *ResetOrchestrator) Reset(ctx context.Context) ResetOutcome {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "command.Reset")
	defer span.End()

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	results := make([]TargetResult, len(o.targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range o.targets {
		results[i] = TargetResult{Target: target.name, Service: target.client.Name()}
		g.Go(func() error {
			return o.call(ctx, gctx, target, &results[i])
		})
	}
	groupErr := g.Wait()

	out := ResetOutcome{Targets: results}
	var fail *Failure
	switch {
	case errors.As(groupErr, &fail):
		out.Failure = fail
	case groupErr != nil:
		out.Failure = classify(StageReset, "", groupErr)
	default:
		for _, r := range results {
			if !r.Success {
				out.Failure = logicalFailure(StageReset, r.Target, r.Message)
				break
			}
		}
	}
	out.Duration = time.Since(start)

	for _, r := range results {
		observability.RecordResetTarget(r.Target, targetResultLabel(r))
	}
	observability.RecordCommand(StageReset, out.OK(), out.Duration)

	if out.OK() {
		o.logger.Info().Dur("duration", out.Duration).Msg("command.Reset ghost and marker are reset")
		return out
	}
	span.SetStatus(codes.Error, out.Failure.Error())
	span.SetAttributes(attribute.StringSlice("failed_targets", out.FailedTargets()))
	o.logger.Error().
		Str("stage", out.Failure.Stage).
		Str("target", out.Failure.Target).
		Str("kind", string(out.Failure.Kind)).
		Strs("failed_targets", out.FailedTargets()).
		Str("message", out.Failure.Message).
		AnErr("cause", out.Failure.Err).
		Msg("command.Reset failed")
	return out
}

func (o *ResetOrchestrator) call(parent, gctx context.Context, target resetTarget, res *TargetResult) error {
	o.logger.Info().
		Str("target", target.name).
		Str("service", res.Service).
		Msg("command.Reset request sent")

	resp, err := target.client.Call(gctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && gctx.Err() != nil && parent.Err() == nil {
			// A sibling already failed and cancelled the group.
			res.Abandoned = true
			return nil
		}
		res.Failure = classify(StageReset, target.name, err)
		return res.Failure
	}

	res.Observed = true
	res.Success = resp.Success
	res.Message = resp.Message
	o.logger.Debug().
		Str("target", target.name).
		Bool("success", resp.Success).
		Str("message", resp.Message).
		Msg("command.Reset response")
	return nil
}

func targetResultLabel(r TargetResult) string {
	switch {
	case r.Abandoned:
		return "abandoned"
	case r.Failure != nil:
		return string(r.Failure.Kind)
	case r.Success:
		return "success"
	default:
		return string(FailureLogical)
	}
}
