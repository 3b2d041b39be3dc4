package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/teachctl/internal/auth"
	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/dispatch"
	"github.com/danmuck/teachctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownGrace = 5 * time.Second

// Dispatcher is the subset of *dispatch.Dispatcher the routes use.
type Dispatcher interface {
	Dispatch(ctx context.Context, action dispatch.Action) dispatch.Ack
	InFlight(action dispatch.Action) bool
	Last(action dispatch.Action) (dispatch.Ack, bool)
}

var _ Dispatcher = (*dispatch.Dispatcher)(nil)

type Config struct {
	Node        string
	CORSOrigins []string

	// Validator guards /pose and /actions. Nil leaves them open.
	Validator auth.Validator
}

type Server struct {
	cfg        Config
	engine     *gin.Engine
	dispatcher Dispatcher
	poses      command.PoseSource
	ready      func() bool
	logger     zerolog.Logger
	startedAt  time.Time
}

func New(cfg Config, d Dispatcher, poses command.PoseSource, ready func() bool, logger zerolog.Logger) *Server {
	if ready == nil {
		ready = func() bool { return true }
	}
	s := &Server{
		cfg:        cfg,
		engine:     gin.New(),
		dispatcher: d,
		poses:      poses,
		ready:      ready,
		logger:     logger,
		startedAt:  time.Now(),
	}
	s.engine.Use(gin.Recovery())
	s.engine.Use(observability.RequestLogger(logger, "/health", "/ready", "/metrics"))
	s.engine.Use(observability.RequestMetricsMiddleware(cfg.Node))
	if len(cfg.CORSOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve runs the HTTP server on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("admin.Server listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin: shutdown: %w", err)
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("admin: serve: %w", err)
	}
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guarded := s.engine.Group("/")
	if s.cfg.Validator != nil {
		guarded.Use(bearerAuth(s.cfg.Validator))
	}
	guarded.GET("/pose", s.handlePose)
	guarded.GET("/actions", s.handleListActions)
	guarded.POST("/actions/:action", s.handleAction)
}

func bearerAuth(v auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok || v.Validate(token) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.Node,
		"uptime":  time.Since(s.startedAt).Truncate(time.Second).String(),
	})
}

func (s *Server) handleReady(c *gin.Context) {
	if !s.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

type poseView struct {
	Seq       uint64    `json:"seq"`
	Stamp     time.Time `json:"stamp"`
	FrameID   string    `json:"frame_id"`
	Names     []string  `json:"names"`
	Positions []float64 `json:"positions"`
}

func (s *Server) handlePose(c *gin.Context) {
	snap := s.poses.Read()
	c.JSON(http.StatusOK, poseView{
		Seq:       snap.Header.Seq,
		Stamp:     snap.Header.Stamp,
		FrameID:   snap.Header.FrameID,
		Names:     snap.Names,
		Positions: snap.Positions,
	})
}

type actionView struct {
	Action   dispatch.Action `json:"action"`
	InFlight bool            `json:"in_flight"`
	Last     *dispatch.Ack   `json:"last,omitempty"`
}

func (s *Server) handleListActions(c *gin.Context) {
	out := make([]actionView, 0, len(dispatch.Actions()))
	for _, a := range dispatch.Actions() {
		view := actionView{Action: a, InFlight: s.dispatcher.InFlight(a)}
		if last, ok := s.dispatcher.Last(a); ok {
			view.Last = &last
		}
		out = append(out, view)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAction(c *gin.Context) {
	action, err := dispatch.ParseAction(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ack := s.dispatcher.Dispatch(c.Request.Context(), action)
	c.JSON(ackStatus(ack), ack)
}

func ackStatus(ack dispatch.Ack) int {
	switch {
	case ack.OK:
		return http.StatusOK
	case ack.Busy:
		return http.StatusConflict
	case strings.EqualFold(ack.Kind, string(command.FailureTimeout)):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
