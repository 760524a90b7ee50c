package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/internal/database"
	"github.com/temcen/dishrec/internal/handlers"
	"github.com/temcen/dishrec/internal/middleware"
	"github.com/temcen/dishrec/internal/services"
	"github.com/temcen/dishrec/internal/validation"
)

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	services  *services.Services
	handlers  *handlers.Handlers
	schemas   *validation.SchemaValidator
	router    *gin.Engine
	registry  *prometheus.Registry
	stopSync  context.CancelFunc
	workersWG sync.WaitGroup
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config:   cfg,
		logger:   NewLogger(cfg.Logging),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	services, err := services.New(cfg, app.logger, db, app.registry)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = services

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}
	app.schemas = schemas

	app.handlers = handlers.New(app.logger, services)
	app.setupRouter()

	return app, nil
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Logger() *logrus.Logger {
	return a.logger
}

// StartWorkers prepares the graph mirror and starts the graph sync consumer
// when both Neo4j and Kafka are configured.
func (a *App) StartWorkers(ctx context.Context) error {
	if a.services.Graph != nil {
		setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := a.services.Graph.EnsureConstraints(setupCtx); err != nil {
			return fmt.Errorf("failed to prepare graph constraints: %w", err)
		}
	}

	if a.services.GraphSync == nil {
		return nil
	}

	syncCtx, stop := context.WithCancel(ctx)
	a.stopSync = stop
	a.workersWG.Add(1)
	go func() {
		defer a.workersWG.Done()
		if err := a.services.GraphSync.Run(syncCtx); err != nil {
			a.logger.WithError(err).Error("Graph sync worker failed")
		}
	}()

	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.stopSync != nil {
		a.stopSync()
	}
	done := make(chan struct{})
	go func() {
		a.workersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Timed out waiting for background workers")
	}

	if a.services.MessageBus != nil {
		if err := a.services.MessageBus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing message bus")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.CORS(a.config.Security.CORS))

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	rec := a.handlers.Recommendation
	api := router.Group("/api/v1")
	{
		api.Use(middleware.OptionalAuth(a.services.Auth, a.logger))
		api.Use(middleware.RateLimit(a.services.RateLimit, a.logger))

		recommendations := api.Group("/recommendations")
		{
			recommendations.POST("", middleware.ValidateBody(a.schemas, validation.RecommendationRequest), rec.Recommend)
			recommendations.GET("/nearby", rec.Nearby)
			recommendations.GET("/by-taste", rec.ByTaste)
			recommendations.GET("/similar/:foodId", rec.Similar)

			recommendations.GET("/personalized", middleware.RequireAuth(), rec.Personalized)
			recommendations.POST("/interaction", middleware.RequireAuth(),
				middleware.ValidateBody(a.schemas, validation.InteractionRequest), rec.RecordInteraction)
			recommendations.GET("/history", middleware.RequireAuth(), rec.History)
		}
	}

	a.router = router
}
