package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tipcast/tipcast/internal/alertqueue"
	"github.com/tipcast/tipcast/internal/config"
	"github.com/tipcast/tipcast/internal/realtime"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	streamerdomain "github.com/tipcast/tipcast/internal/streamer/domain"
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	streamerSvc streamerdomain.Service
	txSvc       txdomain.Service
	securitySvc securitydomain.Service
	queue       *alertqueue.Queue
	hub         *realtime.Hub
	gateway     *realtime.Gateway
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	StreamerSvc streamerdomain.Service
	TxSvc       txdomain.Service
	SecuritySvc securitydomain.Service
	Queue       *alertqueue.Queue
	Hub         *realtime.Hub
	Gateway     *realtime.Gateway
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("server"),
		genID:       p.GenID,
		streamerSvc: p.StreamerSvc,
		txSvc:       p.TxSvc,
		securitySvc: p.SecuritySvc,
		queue:       p.Queue,
		hub:         p.Hub,
		gateway:     p.Gateway,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
	s.RegisterWidgetRoutes()
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Public alert surface (token-gated) --------
	api.POST("/alert/:token", s.SendAlert)
	api.POST("/alert/:token/test", s.SendTestAlert)
	api.GET("/widget/:token/status", s.WidgetStatus)

	// -------- Streamers --------
	api.POST("/streamers", s.CreateStreamer)
	api.PUT("/streamers/:id/bank", s.UpdateBankCredentials)
	api.GET("/streamers/:id/donation-totals", s.GetDonationTotals)

	// -------- Token lifecycle --------
	api.GET("/streamers/:id/security", s.GetSecuritySettings)
	api.PUT("/streamers/:id/security", s.UpdateSecuritySettings)
	api.POST("/streamers/:id/security/regenerate", s.RegenerateToken)
	api.POST("/streamers/:id/security/revoke", s.RevokeToken)
	api.GET("/streamers/:id/security/violations", s.ListSecurityViolations)
}

func (s *Server) RegisterWidgetRoutes() {
	s.engine.GET("/ws/obs-widget", s.gateway.Handle)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
