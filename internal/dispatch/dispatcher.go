package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/observability"
	"github.com/rs/zerolog"
)

var ErrUnknownAction = errors.New("dispatch: unknown action")

type Action string

const (
	ActionReset Action = "reset"
	ActionMatch Action = "match"
)

// Actions lists the supported actions in display order.
func Actions() []Action {
	return []Action{ActionReset, ActionMatch}
}

func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionReset:
		return ActionReset, nil
	case ActionMatch:
		return ActionMatch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
}

// Ack is what an operator surface shows after a press.
type Ack struct {
	Action        Action        `json:"action"`
	OK            bool          `json:"ok"`
	Busy          bool          `json:"busy,omitempty"`
	Detail        string        `json:"detail"`
	Kind          string        `json:"kind,omitempty"`
	FailedTargets []string      `json:"failed_targets,omitempty"`
	GoalID        string        `json:"goal_id,omitempty"`
	Status        string        `json:"status,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	At            time.Time     `json:"at"`
}

// Resetter is satisfied by *command.ResetOrchestrator.
type Resetter interface {
	Reset(ctx context.Context) command.ResetOutcome
}

var _ Resetter = (*command.ResetOrchestrator)(nil)

type Dispatcher struct {
	reset  Resetter
	match  command.Matcher
	logger zerolog.Logger
	now    func() time.Time

	inflight map[Action]*atomic.Bool

	mu   sync.RWMutex
	last map[Action]Ack
}

func New(reset Resetter, match command.Matcher, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		reset:    reset,
		match:    match,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[Action]*atomic.Bool),
		last:     make(map[Action]Ack),
	}
	for _, a := range Actions() {
		d.inflight[a] = &atomic.Bool{}
	}
	return d
}

// Dispatch runs action on the caller's goroutine and returns its ack.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action) Ack {
	flag, ok := d.inflight[action]
	if !ok {
		observability.RecordDispatch(string(action), "unknown")
		return Ack{
			Action: action,
			Detail: fmt.Sprintf("%v: %q", ErrUnknownAction, action),
			At:     d.now(),
		}
	}
	if !flag.CompareAndSwap(false, true) {
		observability.RecordDispatch(string(action), "busy")
		d.logger.Warn().Str("action", string(action)).Msg("dispatch.Dispatch dropped, already in flight")
		return Ack{
			Action: action,
			Busy:   true,
			Detail: string(action) + " already in progress",
			At:     d.now(),
		}
	}
	defer flag.Store(false)

	var ack Ack
	switch action {
	case ActionReset:
		ack = resetAck(d.reset.Reset(ctx))
	case ActionMatch:
		ack = matchAck(d.match.Match(ctx))
	}
	ack.Action = action
	ack.At = d.now()

	d.mu.Lock()
	d.last[action] = ack
	d.mu.Unlock()

	result := "ok"
	if !ack.OK {
		result = ack.Kind
	}
	observability.RecordDispatch(string(action), result)
	d.logger.Info().
		Str("action", string(action)).
		Bool("ok", ack.OK).
		Str("detail", ack.Detail).
		Dur("duration", ack.Duration).
		Msg("dispatch.Dispatch done")
	return ack
}

// InFlight reports whether action is currently running.
func (d *Dispatcher) InFlight(action Action) bool {
	flag, ok := d.inflight[action]
	return ok && flag.Load()
}

// Last returns the most recent completed ack for action.
func (d *Dispatcher) Last(action Action) (Ack, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ack, ok := d.last[action]
	return ack, ok
}

func resetAck(out command.ResetOutcome) Ack {
	ack := Ack{
		OK:       out.OK(),
		Duration: out.Duration,
	}
	if out.OK() {
		ack.Detail = "ghost and marker reset"
		return ack
	}
	ack.Kind = string(out.Failure.Kind)
	ack.FailedTargets = out.FailedTargets()
	ack.Detail = out.Failure.Error()
	return ack
}

func matchAck(out command.MatchOutcome) Ack {
	ack := Ack{
		OK:       out.OK(),
		GoalID:   out.GoalID,
		Duration: out.Duration,
	}
	if out.Result != nil {
		ack.Status = string(out.Result.Status)
	}
	if !out.OK() {
		ack.Kind = string(out.Failure.Kind)
		ack.Detail = out.Failure.Error()
		return ack
	}
	switch {
	case out.Result == nil:
		ack.Detail = "match sent"
	case out.Result.Message != "":
		ack.Detail = fmt.Sprintf("match %s: %s", out.Result.Status, out.Result.Message)
	default:
		ack.Detail = fmt.Sprintf("match %s", out.Result.Status)
	}
	return ack
}
