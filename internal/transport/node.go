package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/pose"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/peer"
)

// Node is the client side of the transport: one connection shared by every
// trigger, action, and topic client built from it.
type Node struct {
	name   string
	target string
	conn   *grpc.ClientConn
	logger zerolog.Logger
}

// Dial creates a lazily connecting node. opts are appended after the defaults.
func Dial(target, name string, logger zerolog.Logger, opts ...grpc.DialOption) (*Node, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("transport: empty target")
	}
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUserAgent(name),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", target, err)
	}
	return &Node{
		name:   name,
		target: target,
		conn:   conn,
		logger: logger,
	}, nil
}

func (n *Node) Name() string {
	return n.name
}

// Conn exposes the shared connection for health probes.
func (n *Node) Conn() *grpc.ClientConn {
	return n.conn
}

func (n *Node) State() connectivity.State {
	return n.conn.GetState()
}

func (n *Node) Ready() bool {
	return n.conn.GetState() == connectivity.Ready
}

func (n *Node) Close() error {
	return n.conn.Close()
}

// Spin keeps the connection warm until ctx is done. Each period it kicks an
// idle connection and logs state transitions.
func (n *Node) Spin(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("transport: spin period must be positive, got %s", period)
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	n.conn.Connect()
	last := n.conn.GetState()
	n.logger.Debug().Str("target", n.target).Str("state", last.String()).Msg("transport.Node spin started")
	for {
		select {
		case <-ctx.Done():
			n.logger.Debug().Str("target", n.target).Msg("transport.Node spin stopped")
			return nil
		case <-ticker.C:
			state := n.conn.GetState()
			if state == connectivity.Idle {
				n.conn.Connect()
			}
			if state != last {
				n.logger.Info().
					Str("target", n.target).
					Str("from", last.String()).
					Str("to", state.String()).
					Msg("transport.Node state changed")
				last = state
			}
		}
	}
}

// TriggerClient returns a client for the named trigger service.
func (n *Node) TriggerClient(service string) command.TriggerClient {
	return &triggerClient{node: n, service: strings.TrimSpace(service)}
}

// ActionClient returns a client for the named action.
func (n *Node) ActionClient(action string) command.ActionClient {
	return &actionClient{node: n, action: strings.TrimSpace(action)}
}

type triggerClient struct {
	node    *Node
	service string
}

func (c *triggerClient) Name() string {
	return c.service
}

func (c *triggerClient) Call(ctx context.Context) (command.TriggerResponse, error) {
	var (
		reply TriggerReply
		p     peer.Peer
	)
	opts := append(callOpts(), grpc.Peer(&p))
	err := c.node.conn.Invoke(ctx, methodTriggerCall, &TriggerRequest{Service: c.service}, &reply, opts...)
	if err != nil {
		return command.TriggerResponse{}, classifyRPC(ctx, sendPhase(&p), "call "+c.service, err)
	}
	return command.TriggerResponse{Success: reply.Success, Message: reply.Message}, nil
}

type actionClient struct {
	node   *Node
	action string
}

func (c *actionClient) Name() string {
	return c.action
}

func (c *actionClient) SendGoal(ctx context.Context, goal command.MatchGoal) (command.GoalHandle, error) {
	req := &GoalRequest{
		Action: c.action,
		GoalID: uuid.NewString(),
		Goal:   goalToWire(goal),
	}
	var (
		reply GoalReply
		p     peer.Peer
	)
	opts := append(callOpts(), grpc.Peer(&p))
	if err := c.node.conn.Invoke(ctx, methodSendGoal, req, &reply, opts...); err != nil {
		return nil, classifyRPC(ctx, sendPhase(&p), "send goal "+c.action, err)
	}
	if !reply.Accepted {
		return nil, fmt.Errorf("%w: %s: %s", command.ErrGoalRejected, c.action, reply.Reason)
	}

	streamCtx, stop := context.WithCancel(ctx)
	h := &goalHandle{
		node:     c.node,
		ref:      GoalRef{Action: c.action, GoalID: reply.GoalID},
		feedback: make(chan command.Feedback, 16),
		stop:     stop,
	}
	go h.streamFeedback(streamCtx)
	return h, nil
}

type goalHandle struct {
	node     *Node
	ref      GoalRef
	feedback chan command.Feedback
	stop     context.CancelFunc
	stopOnce sync.Once
}

func (h *goalHandle) ID() string {
	return h.ref.GoalID
}

func (h *goalHandle) Feedback() <-chan command.Feedback {
	return h.feedback
}

// Result blocks until the goal reaches a terminal status.
func (h *goalHandle) Result(ctx context.Context) (command.GoalResult, error) {
	var reply ResultReply
	if err := h.node.conn.Invoke(ctx, methodGetResult, &h.ref, &reply, callOpts()...); err != nil {
		h.stopOnce.Do(h.stop)
		return command.GoalResult{}, classifyRPC(ctx, phaseAwait, "get result "+h.ref.Action, err)
	}
	h.stopOnce.Do(h.stop)
	status := reply.Status
	if status == "" {
		status = command.GoalUnknown
	}
	return command.GoalResult{Status: status, Message: reply.Message}, nil
}

func (h *goalHandle) Cancel(ctx context.Context) error {
	var reply CancelReply
	if err := h.node.conn.Invoke(ctx, methodCancelGoal, &h.ref, &reply, callOpts()...); err != nil {
		return classifyRPC(ctx, phaseAwait, "cancel goal "+h.ref.Action, err)
	}
	h.node.logger.Debug().
		Str("goal_id", h.ref.GoalID).
		Bool("canceling", reply.Canceling).
		Msg("transport.Node cancel goal")
	return nil
}

// streamFeedback forwards feedback until the goal ends or ctx is done, then
// closes the feedback channel. A slow reader loses messages.
func (h *goalHandle) streamFeedback(ctx context.Context) {
	defer close(h.feedback)
	defer h.stopOnce.Do(h.stop)

	stream, err := h.node.conn.NewStream(ctx, &actionServiceDesc.Streams[0], methodFeedback, callOpts()...)
	if err != nil {
		h.logFeedbackEnd(ctx, err)
		return
	}
	if err := stream.SendMsg(&h.ref); err != nil {
		h.logFeedbackEnd(ctx, err)
		return
	}
	if err := stream.CloseSend(); err != nil {
		h.logFeedbackEnd(ctx, err)
		return
	}
	for {
		var msg FeedbackMsg
		if err := stream.RecvMsg(&msg); err != nil {
			h.logFeedbackEnd(ctx, err)
			return
		}
		select {
		case h.feedback <- command.Feedback{Progress: msg.Progress, Positions: msg.Positions}:
		default:
		}
	}
}

func (h *goalHandle) logFeedbackEnd(ctx context.Context, err error) {
	if errors.Is(err, io.EOF) || ctx.Err() != nil {
		return
	}
	h.node.logger.Debug().Err(err).Str("goal_id", h.ref.GoalID).Msg("transport.Node feedback stream ended")
}

// Subscription is a topic stream. It satisfies pose.Feed.
type Subscription struct {
	topic  string
	stream grpc.ClientStream
	cancel context.CancelFunc
}

var _ pose.Feed = (*Subscription)(nil)

// Subscribe opens a stream of joint states on topic. It waits for the
// connection to become ready instead of failing fast. The stream lives until
// ctx is done or Close is called.
func (n *Node) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	topic = strings.TrimSpace(topic)
	streamCtx, cancel := context.WithCancel(ctx)
	opts := append(callOpts(), grpc.WaitForReady(true))
	stream, err := n.conn.NewStream(streamCtx, &topicServiceDesc.Streams[0], methodSubscribe, opts...)
	if err != nil {
		cancel()
		return nil, classifyRPC(ctx, phaseSend, "subscribe "+topic, err)
	}
	if err := stream.SendMsg(&SubscribeRequest{Topic: topic}); err != nil {
		cancel()
		return nil, classifyRPC(ctx, phaseSend, "subscribe "+topic, err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, classifyRPC(ctx, phaseSend, "subscribe "+topic, err)
	}
	n.logger.Info().Str("topic", topic).Msg("transport.Node subscribed")
	return &Subscription{topic: topic, stream: stream, cancel: cancel}, nil
}

func (s *Subscription) Topic() string {
	return s.topic
}

// Next returns the positions of the next joint state on the topic.
func (s *Subscription) Next(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var msg JointState
	if err := s.stream.RecvMsg(&msg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("transport: topic %s closed", s.topic)
		}
		return nil, classifyRPC(ctx, phaseAwait, "recv "+s.topic, err)
	}
	return msg.Position, nil
}

func (s *Subscription) Close() {
	s.cancel()
}
