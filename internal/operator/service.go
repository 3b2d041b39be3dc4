package operator

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/teachctl/internal/admin"
	"github.com/danmuck/teachctl/internal/auth"
	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/dispatch"
	"github.com/danmuck/teachctl/internal/pose"
	"github.com/danmuck/teachctl/internal/transport"
	"github.com/danmuck/teachctl/internal/tui"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// Service runs the console as a process.
type Service struct {
	cfg      ServiceConfig
	logger   zerolog.Logger
	dialOpts []grpc.DialOption

	node       *transport.Node
	cache      *pose.Cache
	reset      *command.ResetOrchestrator
	matcher    command.Matcher
	dispatcher *dispatch.Dispatcher
	admin      *admin.Server
}

// NewServiceWithConfig builds an unstarted service. dialOpts are passed to
// the transport node.
func NewServiceWithConfig(cfg ServiceConfig, logger zerolog.Logger, dialOpts ...grpc.DialOption) *Service {
	return &Service{
		cfg:      cfg,
		logger:   logger,
		dialOpts: dialOpts,
	}
}

func (s *Service) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

func (s *Service) Cache() *pose.Cache {
	return s.cache
}

// Run blocks until SIGINT/SIGTERM or, in TUI mode, until the operator quits.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Start(ctx)
}

// Start bootstraps and serves until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if err := s.bootstrap(); err != nil {
		return err
	}
	defer s.node.Close()
	return s.serve(ctx)
}

func (s *Service) bootstrap() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	node, err := transport.Dial(s.cfg.Target, s.cfg.NodeName, s.logger, s.dialOpts...)
	if err != nil {
		return err
	}
	s.node = node
	s.cache = pose.NewCache(s.cfg.FrameID, s.cfg.JointNames)

	e := s.cfg.Endpoints
	s.reset = command.NewResetOrchestrator(
		node.TriggerClient(e.ResetGhost),
		node.TriggerClient(e.ResetMarker),
		command.ResetConfig{Timeout: s.cfg.ResetTimeout},
		s.logger,
	)
	switch s.cfg.MatchStrategy {
	case command.StrategyTrigger:
		s.matcher = command.NewTriggerMatcher(node.TriggerClient(e.MatchGhost), s.logger)
	default:
		s.matcher = command.NewActionMatcher(
			node.ActionClient(e.Control),
			s.cache,
			command.MatchConfig{ResultTimeout: s.cfg.MatchResultTimeout},
			s.logger,
		)
	}
	s.dispatcher = dispatch.New(s.reset, s.matcher, s.logger)

	if strings.TrimSpace(s.cfg.Admin.ListenAddr) != "" {
		s.admin = admin.New(admin.Config{
			Node:        s.cfg.NodeName,
			CORSOrigins: s.cfg.Admin.CORSOrigins,
			Validator:   adminValidator(s.cfg.Admin),
		}, s.dispatcher, s.cache, node.Ready, s.logger)
	}

	s.logger.Info().
		Str("node", s.cfg.NodeName).
		Str("target", s.cfg.Target).
		Str("mode", string(s.cfg.Mode)).
		Str("match_strategy", s.matcher.Strategy()).
		Bool("admin", s.admin != nil).
		Msg("operator.Service.bootstrap ready")
	return nil
}

func adminValidator(cfg AdminConfig) auth.Validator {
	var validators auth.AnyOf
	if cfg.Token != "" {
		validators = append(validators, auth.StaticToken{Token: cfg.Token})
	}
	if cfg.JWTSecret != "" {
		validators = append(validators, auth.HS256{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer})
	}
	if len(validators) == 0 {
		return nil
	}
	return validators
}

func (s *Service) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lis net.Listener
	if s.admin != nil {
		l, err := net.Listen("tcp", strings.TrimSpace(s.cfg.Admin.ListenAddr))
		if err != nil {
			return fmt.Errorf("operator: admin listen %s: %w", s.cfg.Admin.ListenAddr, err)
		}
		lis = l
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.node.Spin(gctx, s.cfg.SpinPeriod)
	})
	g.Go(func() error {
		s.ingest(gctx)
		return nil
	})
	if lis != nil {
		g.Go(func() error {
			return s.admin.Serve(gctx, lis)
		})
	}
	if s.cfg.Mode == ModeTUI {
		g.Go(func() error {
			defer cancel()
			model := tui.New(gctx, s.dispatcher, s.cache, "teaching tools")
			return tui.Run(gctx, model)
		})
	}

	err := g.Wait()
	s.logger.Info().Msg("operator.Service.serve shutdown")
	return err
}

// ingest feeds the ghost topic into the pose cache. A feed that ends leaves
// the last pose in place.
func (s *Service) ingest(ctx context.Context) {
	topic := s.cfg.Endpoints.GhostTopic
	sub, err := s.node.Subscribe(ctx, topic)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Str("topic", topic).Msg("operator.Service ghost subscription failed")
		}
		return
	}
	defer sub.Close()
	if err := pose.Ingest(ctx, sub, s.cache, s.logger); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("operator.Service ghost pose is stale")
	}
}
