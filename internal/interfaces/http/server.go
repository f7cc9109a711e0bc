// Package http assembles the gin engine: middleware stack, route
// registration, and server lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dropsight/dropsight/internal/config"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/prometheus"
	"github.com/dropsight/dropsight/internal/interfaces/http/handlers"
	"github.com/dropsight/dropsight/internal/interfaces/http/middleware"
)

// Deps bundles everything the server mounts.  Score and Recommendation are
// required; the rest are optional and skipped when nil.
type Deps struct {
	Score          *handlers.ScoreHandler
	Recommendation *handlers.RecommendationHandler
	Health         *handlers.HealthHandler
	MetricsHandler http.Handler
	AppMetrics     *prometheus.AppMetrics
}

// Server is the HTTP front end.
type Server struct {
	cfg    config.ServerConfig
	engine *gin.Engine
	srv    *http.Server
	logger logging.Logger
}

// NewServer builds the engine and wires middleware and routes.  Mode
// follows the server config: "release" silences gin's debug output.
func NewServer(cfg config.ServerConfig, log logging.Logger, deps Deps) *Server {
	switch cfg.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogging(log, middleware.DefaultLoggingConfig()))
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if deps.AppMetrics != nil {
		engine.Use(middleware.Metrics(deps.AppMetrics))
	}

	if deps.Score != nil {
		deps.Score.Register(engine)
	}
	if deps.Recommendation != nil {
		deps.Recommendation.Register(engine)
	}
	health := deps.Health
	if health == nil {
		health = handlers.NewHealthHandler(nil)
	}
	health.Register(engine)
	if deps.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	return &Server{
		cfg:    cfg,
		engine: engine,
		logger: log,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logging.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
