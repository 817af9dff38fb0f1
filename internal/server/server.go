package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"reelgen/internal/config"
	"reelgen/internal/handler"
	"reelgen/internal/server/middleware"
	"reelgen/internal/service"
	"reelgen/internal/store"
)

// Server is the HTTP server plus the job store and pipeline it hosts.
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	jobs     *store.Jobs
	pipeline *service.Pipeline
}

// New creates a server instance.
func New(cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	jobs := store.NewJobs()
	pipeline := service.NewPipeline(jobs, service.DefaultAdapters(cfg), cfg)

	srv := &Server{
		cfg:      cfg,
		engine:   engine,
		jobs:     jobs,
		pipeline: pipeline,
	}

	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupRoutes() {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	videoHandler := handler.NewVideoHandler(s.jobs, s.pipeline)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/videos", videoHandler.Create)
		v1.GET("/videos/:id", videoHandler.Get)
		v1.GET("/videos/:id/events", videoHandler.Events)
		v1.GET("/videos/:id/ws", videoHandler.EventsWS)

		// Deprecated: callback-driven scene updates; polling is the
		// reliable path.
		v1.POST("/callbacks/kie", videoHandler.RenderCallback)
	}
}

// Run starts the server and the retention sweeper, blocking until ctx
// is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go s.runCleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// runCleanup periodically removes jobs past the retention window,
// terminal or not, together with their subscriptions.
func (s *Server) runCleanup(ctx context.Context) {
	interval := s.cfg.Pipeline.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.jobs.Cleanup(s.cfg.Pipeline.Retention); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up expired jobs")
			}
		}
	}
}

// Engine returns the gin engine (tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
