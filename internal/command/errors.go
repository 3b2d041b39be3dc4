package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDispatch     = errors.New("command: dispatch failed")
	ErrTransport    = errors.New("command: transport failed")
	ErrLogical      = errors.New("command: service reported failure")
	ErrGoalRejected = errors.New("command: goal rejected")
	ErrTimeout      = errors.New("command: timed out")
)

// FailureKind classifies where and how a command failed.
type FailureKind string

const (
	// FailureDispatch: the request could not be sent at all.
	FailureDispatch FailureKind = "dispatch"
	// FailureLogical: the endpoint answered success=false.
	FailureLogical FailureKind = "logical"
	// FailureTransport: the connection failed while awaiting a reply.
	FailureTransport FailureKind = "transport"
	// FailureRejected: the action server refused the goal.
	FailureRejected FailureKind = "rejected"
	// FailureTimeout: an optional deadline expired.
	FailureTimeout FailureKind = "timeout"
)

const (
	StageReset  = "reset"
	StageSubmit = "submit"
	StageResult = "result"
	StageMatch  = "match"
)

// Failure is the diagnostic record attached to a failed outcome.
type Failure struct {
	Kind    FailureKind
	Stage   string
	Target  string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command: %s %s failed (%s)", f.Stage, f.Target, f.Kind)
	if f.Message != "" {
		fmt.Fprintf(&b, ": %s", f.Message)
	}
	if f.Err != nil && f.Kind != FailureLogical {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	return b.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func logicalFailure(stage, target, message string) *Failure {
	return &Failure{
		Kind:    FailureLogical,
		Stage:   stage,
		Target:  target,
		Message: message,
		Err:     ErrLogical,
	}
}

// classify maps a port error into a Failure for stage and target.
func classify(stage, target string, err error) *Failure {
	f := &Failure{Stage: stage, Target: target, Err: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		f.Kind = FailureTimeout
	case errors.Is(err, ErrGoalRejected):
		f.Kind = FailureRejected
	case errors.Is(err, ErrDispatch):
		f.Kind = FailureDispatch
	default:
		f.Kind = FailureTransport
	}
	return f
}
