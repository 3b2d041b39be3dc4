package command

import (
	"context"

	"github.com/danmuck/teachctl/internal/pose"
)

// TriggerResponse is the reply of a zero-payload trigger call.
type TriggerResponse struct {
	Success bool
	Message string
}

// TriggerClient issues one named trigger call per Call.
// Errors wrapping ErrDispatch mean the request never left; anything else is a
// transport failure while awaiting the response.
type TriggerClient interface {
	Name() string
	Call(ctx context.Context) (TriggerResponse, error)
}

// GoalStatus is the terminal status reported by the action protocol.
type GoalStatus string

const (
	GoalSucceeded GoalStatus = "succeeded"
	GoalAborted   GoalStatus = "aborted"
	GoalCanceled  GoalStatus = "canceled"
	GoalUnknown   GoalStatus = "unknown"
)

// GoalResult is the terminal (status, message) pair of an accepted goal.
type GoalResult struct {
	Status  GoalStatus
	Message string
}

// Feedback is one intermediate progress notification for an executing goal.
type Feedback struct {
	Progress  float64
	Positions []float64
}

// GoalHandle tracks one accepted goal.
type GoalHandle interface {
	ID() string
	Result(ctx context.Context) (GoalResult, error)
	Feedback() <-chan Feedback
	Cancel(ctx context.Context) error
}

// ActionClient submits goals to one named action endpoint. SendGoal returns
// only after the goal was accepted; rejection wraps ErrGoalRejected.
type ActionClient interface {
	Name() string
	SendGoal(ctx context.Context, goal MatchGoal) (GoalHandle, error)
}

// PoseSource yields the current ghost pose snapshot.
type PoseSource interface {
	Read() pose.Snapshot
}

var _ PoseSource = (*pose.Cache)(nil)
