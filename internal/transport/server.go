package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const defaultGoalRetention = time.Minute

// TriggerFunc answers one trigger call.
type TriggerFunc func(ctx context.Context) TriggerReply

// GoalExecutor runs the goals of one action.
type GoalExecutor interface {
	// Validate rejects a malformed goal before it is accepted.
	Validate(goal Goal) error
	// Execute runs an accepted goal until it finishes or ctx is cancelled.
	// context.Cause(ctx) is ErrPreempted or ErrGoalCanceled on cancellation.
	Execute(ctx context.Context, goal Goal, feedback func(FeedbackMsg)) ResultReply
}

// Topic fans published joint states out to every subscriber.
type Topic struct {
	name string
	b    *broadcaster[JointState]
}

func (t *Topic) Name() string {
	return t.name
}

func (t *Topic) Publish(msg JointState) {
	t.b.publish(msg)
}

func (t *Topic) Subscribers() int {
	return t.b.count()
}

type goalRecord struct {
	id       string
	action   string
	cancel   context.CancelCauseFunc
	done     chan struct{}
	result   ResultReply
	feedback *broadcaster[FeedbackMsg]
}

type actionState struct {
	exec    GoalExecutor
	current *goalRecord
}

// Server hosts named triggers, actions, and topics on one gRPC server.
type Server struct {
	grpc      *grpc.Server
	health    *health.Server
	logger    zerolog.Logger
	retention time.Duration
	running   sync.WaitGroup

	mu       sync.RWMutex
	triggers map[string]TriggerFunc
	actions  map[string]*actionState
	topics   map[string]*Topic
	goals    map[string]*goalRecord
}

func NewServer(logger zerolog.Logger, opts ...grpc.ServerOption) *Server {
	s := &Server{
		health:    health.NewServer(),
		logger:    logger,
		retention: defaultGoalRetention,
		triggers:  make(map[string]TriggerFunc),
		actions:   make(map[string]*actionState),
		topics:    make(map[string]*Topic),
		goals:     make(map[string]*goalRecord),
	}
	base := []grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}
	s.grpc = grpc.NewServer(append(base, opts...)...)
	s.grpc.RegisterService(&triggerServiceDesc, triggerHandler{s})
	s.grpc.RegisterService(&actionServiceDesc, actionHandler{s})
	s.grpc.RegisterService(&topicServiceDesc, topicHandler{s})
	grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
	return s
}

// HandleTrigger binds a trigger service name.
func (s *Server) HandleTrigger(name string, fn TriggerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers[strings.TrimSpace(name)] = fn
}

// HandleAction binds an action name to its executor.
func (s *Server) HandleAction(name string, exec GoalExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[strings.TrimSpace(name)] = &actionState{exec: exec}
}

// Topic returns the named topic, creating it on first use.
func (s *Server) Topic(name string) *Topic {
	key := strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.topics[key]; ok {
		return t
	}
	t := &Topic{name: key, b: newBroadcaster[JointState]()}
	s.topics[key] = t
	return t
}

// Serve runs the gRPC server on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("transport.Server listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpc.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.stopStreams()
		s.grpc.GracefulStop()
		s.stopStreams()
		s.running.Wait()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("transport: serve: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("transport: serve: %w", err)
	}
}

// stopStreams ends topic subscriptions and cancels running goals so that
// GracefulStop does not wait on open streams.
func (s *Server) stopStreams() {
	s.mu.Lock()
	topics := make([]*Topic, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, t)
	}
	goals := make([]*goalRecord, 0, len(s.goals))
	for _, g := range s.goals {
		goals = append(goals, g)
	}
	s.mu.Unlock()

	for _, t := range topics {
		t.b.close()
	}
	for _, g := range goals {
		g.cancel(ErrGoalCanceled)
	}
}

func (s *Server) goal(id string) (*goalRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	return g, ok
}

func (s *Server) execute(ctx context.Context, st *actionState, rec *goalRecord, goal Goal, prev *goalRecord) {
	defer s.running.Done()
	if prev != nil {
		prev.cancel(ErrPreempted)
		<-prev.done
	}

	result := st.exec.Execute(ctx, goal, func(fb FeedbackMsg) {
		fb.GoalID = rec.id
		rec.feedback.publish(fb)
	})
	rec.cancel(nil)

	s.mu.Lock()
	rec.result = result
	if st.current == rec {
		st.current = nil
	}
	s.mu.Unlock()
	close(rec.done)
	rec.feedback.close()

	s.logger.Info().
		Str("action", rec.action).
		Str("goal_id", rec.id).
		Str("status", string(result.Status)).
		Str("message", result.Message).
		Msg("transport.Server goal finished")

	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.goals, rec.id)
	})
}

type triggerHandler struct{ s *Server }

func (h triggerHandler) Call(ctx context.Context, req *TriggerRequest) (*TriggerReply, error) {
	h.s.mu.RLock()
	fn, ok := h.s.triggers[req.Service]
	h.s.mu.RUnlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%v: %s", ErrUnknownService, req.Service)
	}
	reply := fn(ctx)
	h.s.logger.Debug().
		Str("service", req.Service).
		Bool("success", reply.Success).
		Str("message", reply.Message).
		Msg("transport.Server trigger")
	return &reply, nil
}

type actionHandler struct{ s *Server }

func (h actionHandler) SendGoal(ctx context.Context, req *GoalRequest) (*GoalReply, error) {
	s := h.s
	s.mu.Lock()
	st, ok := s.actions[req.Action]
	if !ok {
		s.mu.Unlock()
		return nil, status.Errorf(codes.NotFound, "%v: %s", ErrUnknownAction, req.Action)
	}
	id := strings.TrimSpace(req.GoalID)
	if id == "" {
		id = uuid.NewString()
	}
	if _, dup := s.goals[id]; dup {
		s.mu.Unlock()
		return &GoalReply{GoalID: id, Reason: "duplicate goal_id"}, nil
	}
	if err := st.exec.Validate(req.Goal); err != nil {
		s.mu.Unlock()
		s.logger.Warn().Str("action", req.Action).Str("goal_id", id).Err(err).Msg("transport.Server goal rejected")
		return &GoalReply{GoalID: id, Reason: err.Error()}, nil
	}

	goalCtx, cancel := context.WithCancelCause(context.Background())
	rec := &goalRecord{
		id:       id,
		action:   req.Action,
		cancel:   cancel,
		done:     make(chan struct{}),
		feedback: newBroadcaster[FeedbackMsg](),
	}
	prev := st.current
	st.current = rec
	s.goals[id] = rec
	s.mu.Unlock()

	s.logger.Info().Str("action", req.Action).Str("goal_id", id).Str("command", req.Goal.Command).Msg("transport.Server goal accepted")
	s.running.Add(1)
	go s.execute(goalCtx, st, rec, req.Goal, prev)
	return &GoalReply{Accepted: true, GoalID: id}, nil
}

func (h actionHandler) GetResult(ctx context.Context, req *GoalRef) (*ResultReply, error) {
	rec, ok := h.s.goal(req.GoalID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%v: %s", ErrUnknownGoal, req.GoalID)
	}
	select {
	case <-rec.done:
		out := rec.result
		return &out, nil
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}
}

func (h actionHandler) CancelGoal(ctx context.Context, req *GoalRef) (*CancelReply, error) {
	rec, ok := h.s.goal(req.GoalID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%v: %s", ErrUnknownGoal, req.GoalID)
	}
	select {
	case <-rec.done:
		return &CancelReply{}, nil
	default:
	}
	rec.cancel(ErrGoalCanceled)
	return &CancelReply{Canceling: true}, nil
}

func (h actionHandler) Feedback(req *GoalRef, stream grpc.ServerStream) error {
	rec, ok := h.s.goal(req.GoalID)
	if !ok {
		return status.Errorf(codes.NotFound, "%v: %s", ErrUnknownGoal, req.GoalID)
	}
	ch := rec.feedback.subscribe(16)
	defer rec.feedback.unsubscribe(ch)
	return pump(stream, ch)
}

type topicHandler struct{ s *Server }

func (h topicHandler) Subscribe(req *SubscribeRequest, stream grpc.ServerStream) error {
	h.s.mu.RLock()
	t, ok := h.s.topics[req.Topic]
	h.s.mu.RUnlock()
	if !ok {
		return status.Errorf(codes.NotFound, "%v: %s", ErrUnknownTopic, req.Topic)
	}
	ch := t.b.subscribe(32)
	defer t.b.unsubscribe(ch)
	h.s.logger.Debug().Str("topic", t.name).Msg("transport.Server subscriber attached")
	return pump(stream, ch)
}

func pump[T any](stream grpc.ServerStream, ch <-chan T) error {
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(&msg); err != nil {
				return err
			}
		}
	}
}
