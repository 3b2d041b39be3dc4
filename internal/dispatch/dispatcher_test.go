package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/testutil/testlog"
)

type fakeResetter struct {
	out     command.ResetOutcome
	release chan struct{}
	started chan struct{}
	calls   atomic.Int64
}

func (f *fakeResetter) Reset(ctx context.Context) command.ResetOutcome {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.out
}

type fakeMatcher struct {
	out   command.MatchOutcome
	calls atomic.Int64
}

func (f *fakeMatcher) Strategy() string { return command.StrategyAction }

func (f *fakeMatcher) Match(ctx context.Context) command.MatchOutcome {
	f.calls.Add(1)
	return f.out
}

func TestParseAction(t *testing.T) {
	if a, err := ParseAction(" Reset "); err != nil || a != ActionReset {
		t.Fatalf("ParseAction(reset) = %q, %v", a, err)
	}
	if a, err := ParseAction("match"); err != nil || a != ActionMatch {
		t.Fatalf("ParseAction(match) = %q, %v", a, err)
	}
	if _, err := ParseAction("dance"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestDispatchResetSuccess(t *testing.T) {
	reset := &fakeResetter{out: command.ResetOutcome{Duration: time.Millisecond}}
	d := New(reset, &fakeMatcher{}, testlog.Start(t))

	ack := d.Dispatch(context.Background(), ActionReset)
	if !ack.OK || ack.Busy || ack.Action != ActionReset {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if last, ok := d.Last(ActionReset); !ok || !last.OK {
		t.Fatalf("expected last reset ack to be recorded, got %+v ok=%v", last, ok)
	}
}

func TestDispatchResetFailureCarriesTargets(t *testing.T) {
	failure := &command.Failure{
		Kind:    command.FailureLogical,
		Stage:   command.StageReset,
		Target:  command.TargetMarker,
		Message: "jammed",
		Err:     command.ErrLogical,
	}
	reset := &fakeResetter{out: command.ResetOutcome{
		Targets: []command.TargetResult{
			{Target: command.TargetGhost, Observed: true, Success: true},
			{Target: command.TargetMarker, Observed: true, Message: "jammed"},
		},
		Failure: failure,
	}}
	d := New(reset, &fakeMatcher{}, testlog.Start(t))

	ack := d.Dispatch(context.Background(), ActionReset)
	if ack.OK {
		t.Fatalf("expected failed ack, got %+v", ack)
	}
	if ack.Kind != string(command.FailureLogical) {
		t.Fatalf("expected logical kind, got %q", ack.Kind)
	}
	if len(ack.FailedTargets) != 1 || ack.FailedTargets[0] != command.TargetMarker {
		t.Fatalf("expected marker attributed, got %v", ack.FailedTargets)
	}
	if !strings.Contains(ack.Detail, "jammed") {
		t.Fatalf("expected detail to carry message, got %q", ack.Detail)
	}
}

func TestDispatchDropsConcurrentDuplicate(t *testing.T) {
	reset := &fakeResetter{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	d := New(reset, &fakeMatcher{}, testlog.Start(t))

	first := make(chan Ack, 1)
	go func() {
		first <- d.Dispatch(context.Background(), ActionReset)
	}()
	<-reset.started
	if !d.InFlight(ActionReset) {
		t.Fatal("expected reset in flight")
	}

	ack := d.Dispatch(context.Background(), ActionReset)
	if !ack.Busy || ack.OK {
		t.Fatalf("expected busy ack, got %+v", ack)
	}

	close(reset.release)
	if got := <-first; !got.OK {
		t.Fatalf("expected first dispatch to succeed, got %+v", got)
	}
	if reset.calls.Load() != 1 {
		t.Fatalf("expected one reset call, got %d", reset.calls.Load())
	}
	if d.InFlight(ActionReset) {
		t.Fatal("expected reset flag cleared")
	}
}

func TestDispatchDifferentActionsDoNotBlockEachOther(t *testing.T) {
	reset := &fakeResetter{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	match := &fakeMatcher{out: command.MatchOutcome{
		Accepted: true,
		GoalID:   "g-1",
		Result:   &command.GoalResult{Status: command.GoalAborted, Message: "stopped"},
	}}
	d := New(reset, match, testlog.Start(t))

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(context.Background(), ActionReset)
	}()
	<-reset.started

	ack := d.Dispatch(context.Background(), ActionMatch)
	if !ack.OK || ack.Busy {
		t.Fatalf("expected match to run while reset in flight, got %+v", ack)
	}
	if ack.Status != string(command.GoalAborted) || ack.GoalID != "g-1" {
		t.Fatalf("unexpected match ack: %+v", ack)
	}
	close(reset.release)
	<-done
}

func TestDispatchUnknownAction(t *testing.T) {
	d := New(&fakeResetter{}, &fakeMatcher{}, testlog.Start(t))

	ack := d.Dispatch(context.Background(), Action("dance"))
	if ack.OK || ack.Busy {
		t.Fatalf("expected non-OK ack, got %+v", ack)
	}
	if !strings.Contains(ack.Detail, "unknown action") {
		t.Fatalf("unexpected detail %q", ack.Detail)
	}
}
