package transport

import (
	"time"

	"github.com/danmuck/teachctl/internal/command"
)

type TriggerRequest struct {
	Service string `json:"service"`
}

type TriggerReply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Goal is the wire form of a joint-move goal.
type Goal struct {
	Command           string    `json:"command"`
	UseJointPositions bool      `json:"use_joint_positions"`
	JointPositions    []float64 `json:"joint_positions"`
	Velocity          float64   `json:"velocity"`
	Acceleration      float64   `json:"acceleration"`
}

type GoalRequest struct {
	Action string `json:"action"`
	GoalID string `json:"goal_id"`
	Goal   Goal   `json:"goal"`
}

type GoalReply struct {
	Accepted bool   `json:"accepted"`
	GoalID   string `json:"goal_id"`
	Reason   string `json:"reason,omitempty"`
}

type GoalRef struct {
	Action string `json:"action"`
	GoalID string `json:"goal_id"`
}

type ResultReply struct {
	Status  command.GoalStatus `json:"status"`
	Message string             `json:"message,omitempty"`
}

type CancelReply struct {
	Canceling bool `json:"canceling"`
}

type FeedbackMsg struct {
	GoalID    string    `json:"goal_id"`
	Progress  float64   `json:"progress"`
	Positions []float64 `json:"positions,omitempty"`
}

type SubscribeRequest struct {
	Topic string `json:"topic"`
}

// JointState is one joint-position sample published on a topic.
type JointState struct {
	Stamp    time.Time `json:"stamp"`
	FrameID  string    `json:"frame_id,omitempty"`
	Name     []string  `json:"name,omitempty"`
	Position []float64 `json:"position"`
}

func goalToWire(g command.MatchGoal) Goal {
	return Goal{
		Command:           g.Command,
		UseJointPositions: g.UsePositions,
		JointPositions:    append([]float64(nil), g.Positions...),
		Velocity:          g.Velocity,
		Acceleration:      g.Acceleration,
	}
}
