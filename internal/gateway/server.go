package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SampleBias/Open-Clanker/internal/infrastructure/config"
	"github.com/SampleBias/Open-Clanker/pkg/safego"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// shutdownTimeout HTTP 优雅退出的排空时限
const shutdownTimeout = 10 * time.Second

// Server ties the HTTP surface, the WebSocket sessions and the channel
// dispatch loop together.
type Server struct {
	cfg        *config.Config
	state      *State
	processor  *Processor
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	baseCtx    context.Context
	logger     *zap.Logger
}

// NewServer 创建网关服务
func NewServer(cfg *config.Config, state *State, processor *Processor, logger *zap.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		state:      state,
		processor:  processor,
		dispatcher: NewDispatcher(state, processor, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 浏览器客户端来源不可枚举，与 CORS 策略一致放开
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}

	logger.Info("Gateway server created",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("provider", cfg.Agent.Provider),
		zap.String("model", cfg.Agent.Model),
	)
	return s
}

// State 返回共享状态
func (s *Server) State() *State {
	return s.state
}

// Run starts channel listeners, the dispatcher and the HTTP server, then
// blocks until ctx is cancelled and the HTTP server has drained.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	addr := s.cfg.Server.Addr()

	s.logger.Info("Gateway server listening",
		zap.String("addr", addr),
		zap.String("websocket", fmt.Sprintf("ws://%s/ws", addr)),
		zap.String("health", fmt.Sprintf("http://%s/health", addr)),
	)

	for _, ch := range s.state.Channels() {
		ch := ch
		name := "listen-" + string(ch.ChannelType())
		safego.GoCtx(ctx, s.logger, name, func(ctx context.Context) {
			if err := ch.Listen(ctx, s.dispatcher.Ingress()); err != nil {
				s.logger.Error("Channel listener error",
					zap.String("channel_type", string(ch.ChannelType())),
					zap.Error(err),
				)
			}
		})
	}
	safego.GoCtx(ctx, s.logger, "dispatcher", s.dispatcher.Run)

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: s.buildRouter(),
	}

	errCh := make(chan error, 1)
	safego.Go(s.logger, "http-serve", func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down gateway server")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(drainCtx); err != nil {
			return err
		}
		s.logger.Info("Gateway server shutdown complete")
		return nil
	}
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestLogger(s.logger),
		CORSMiddleware(),
		SecurityHeadersMiddleware(),
	)

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/ws", s.handleWebSocket)
	router.GET("/metrics", gin.WrapH(s.state.Monitor().PrometheusHandler()))
	return router
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Open Clanker Gateway",
		"version":     Version,
		"description": "AI Assistant Gateway with WebSocket support",
		"endpoints": gin.H{
			"health": "/health",
			"ws":     "/ws",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	health := s.state.Health()
	s.logger.Debug("Health check",
		zap.Int("connections", health.ActiveConnections),
		zap.Uint64("messages", health.TotalMessages),
		zap.Int("workers", health.ActiveWorkers),
	)
	c.JSON(http.StatusOK, health)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	NewSession(conn, s.state, s.processor, s.logger).Run(s.baseCtx)
}
