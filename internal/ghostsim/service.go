package ghostsim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/logging"
	"github.com/danmuck/teachctl/internal/observability"
	"github.com/danmuck/teachctl/internal/transport"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidPublishInterval   = errors.New("ghostsim: invalid publish interval")
	ErrInvalidHeartbeatInterval = errors.New("ghostsim: invalid heartbeat interval")
	ErrInvalidPose              = errors.New("ghostsim: home pose and joint names differ in length")
	ErrListenAddrRequired       = errors.New("ghostsim: listen address required")
)

// Names holds the endpoint names the cell answers on.
type Names struct {
	ResetGhost  string
	ResetMarker string
	MatchGhost  string
	Control     string
	GhostTopic  string
}

func DefaultNames() Names {
	return Names{
		ResetGhost:  "reset_ghost",
		ResetMarker: "reset_teaching_marker",
		MatchGhost:  "match_ghost",
		Control:     "ur_control",
		GhostTopic:  "ghost/joint_states",
	}
}

// ServiceConfig configures the simulated cell.
type ServiceConfig struct {
	ListenAddr        string
	FrameID           string
	JointNames        []string
	HomePose          []float64
	Drift             float64
	PublishInterval   time.Duration
	HeartbeatInterval time.Duration
	MarkerJammed      bool
	Controller        ControllerConfig
	Names             Names
	Log               logging.Config
	Tracing           observability.TracingConfig
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr: "127.0.0.1:7420",
		FrameID:    "base_link",
		JointNames: []string{
			"shoulder_pan_joint",
			"shoulder_lift_joint",
			"elbow_joint",
			"wrist_1_joint",
			"wrist_2_joint",
			"wrist_3_joint",
		},
		HomePose:          []float64{0, -1.5708, 1.5708, -1.5708, -1.5708, 0},
		Drift:             0.05,
		PublishInterval:   100 * time.Millisecond,
		HeartbeatInterval: 5 * time.Second,
		Controller: ControllerConfig{
			JointSpeed:       1.0,
			FeedbackInterval: 50 * time.Millisecond,
		},
		Names: DefaultNames(),
		Log:   logging.DefaultConfig(logging.ProfileRuntime),
	}
}

// Service runs the simulated cell as a standalone process.
type Service struct {
	cfg        ServiceConfig
	logger     zerolog.Logger
	ghost      *Ghost
	marker     *Marker
	controller *Controller
	server     *transport.Server
	topic      *transport.Topic
}

func NewService(logger zerolog.Logger) *Service {
	return NewServiceWithConfig(DefaultServiceConfig(), logger)
}

func NewServiceWithConfig(cfg ServiceConfig, logger zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Service) Ghost() *Ghost {
	return s.ghost
}

func (s *Service) Marker() *Marker {
	return s.marker
}

func (s *Service) Controller() *Controller {
	return s.controller
}

// Run blocks until SIGINT/SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.TrimSpace(s.cfg.ListenAddr) == "" {
		return ErrListenAddrRequired
	}
	lis, err := net.Listen("tcp", strings.TrimSpace(s.cfg.ListenAddr))
	if err != nil {
		return fmt.Errorf("ghostsim: listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve bootstraps the cell and serves it on lis until ctx is cancelled.
func (s *Service) Serve(ctx context.Context, lis net.Listener) error {
	if err := s.bootstrap(); err != nil {
		_ = lis.Close()
		return err
	}
	return s.serve(ctx, lis)
}

// bootstrap validates config and builds the cell and its endpoints.
func (s *Service) bootstrap() error {
	if s.cfg.PublishInterval <= 0 {
		return ErrInvalidPublishInterval
	}
	if s.cfg.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	if len(s.cfg.HomePose) == 0 || len(s.cfg.HomePose) != len(s.cfg.JointNames) {
		return ErrInvalidPose
	}
	if strings.TrimSpace(s.cfg.ListenAddr) == "" {
		return ErrListenAddrRequired
	}

	s.ghost = NewGhost(s.cfg.HomePose, s.cfg.Drift)
	s.marker = NewMarker(s.cfg.MarkerJammed)
	s.controller = NewController(s.cfg.HomePose, s.cfg.Controller, s.logger)
	s.server = transport.NewServer(s.logger)

	names := s.cfg.Names
	s.server.HandleTrigger(names.ResetGhost, s.handleResetGhost)
	s.server.HandleTrigger(names.ResetMarker, s.handleResetMarker)
	s.server.HandleTrigger(names.MatchGhost, s.handleMatchGhost)
	s.server.HandleAction(names.Control, s.controller)
	s.topic = s.server.Topic(names.GhostTopic)

	s.logger.Info().
		Str("listen", s.cfg.ListenAddr).
		Int("joints", len(s.cfg.JointNames)).
		Bool("marker_jammed", s.cfg.MarkerJammed).
		Float64("drift", s.cfg.Drift).
		Msg("ghostsim.Service.bootstrap ready")
	return nil
}

func (s *Service) serve(ctx context.Context, lis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.server.Serve(gctx, lis)
	})
	g.Go(func() error {
		s.publishGhost(gctx)
		return nil
	})
	g.Go(func() error {
		s.heartbeat(gctx)
		return nil
	})
	err := g.Wait()
	s.logger.Info().Msg("ghostsim.Service.serve shutdown")
	return err
}

func (s *Service) publishGhost(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PublishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.topic.Publish(transport.JointState{
				Stamp:    now,
				FrameID:  s.cfg.FrameID,
				Name:     s.cfg.JointNames,
				Position: s.ghost.Step(),
			})
		}
	}
}

func (s *Service) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logger.Info().
				Floats64("ghost", s.ghost.Pose()).
				Floats64("arm", s.controller.Joints()).
				Int("subscribers", s.topic.Subscribers()).
				Uint64("marker_resets", s.marker.Resets()).
				Msg("ghostsim.Service.heartbeat")
		}
	}
}

func (s *Service) handleResetGhost(context.Context) transport.TriggerReply {
	s.ghost.Reset()
	s.logger.Info().Msg("ghostsim.Service ghost reset")
	return transport.TriggerReply{Success: true, Message: "ghost reset to home"}
}

func (s *Service) handleResetMarker(context.Context) transport.TriggerReply {
	ok, msg := s.marker.Reset()
	if !ok {
		s.logger.Warn().Str("message", msg).Msg("ghostsim.Service marker reset refused")
	}
	return transport.TriggerReply{Success: ok, Message: msg}
}

// handleMatchGhost moves the arm to the ghost pose in one request.
func (s *Service) handleMatchGhost(ctx context.Context) transport.TriggerReply {
	target := s.ghost.Pose()
	if err := s.controller.Move(ctx, target, command.MatchVelocity, nil); err != nil {
		return transport.TriggerReply{Success: false, Message: err.Error()}
	}
	return transport.TriggerReply{Success: true, Message: "matched ghost"}
}
