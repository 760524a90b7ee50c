package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/internal/database"
	"github.com/temcen/dishrec/internal/messaging"
)

type Services struct {
	Auth           *AuthService
	Health         *HealthService
	RateLimit      *RateLimitService
	MessageBus     *messaging.MessageBus // nil when Kafka is not configured
	Graph          *database.GraphIndex  // nil when Neo4j is not configured
	Store          Store
	Metrics        *EngineMetrics
	Orchestrator   *RecommendationOrchestrator
	Recommendation *RecommendationService
	GraphSync      *GraphSyncWorker // nil unless both Kafka and Neo4j are configured
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) (*Services, error) {
	metrics := NewEngineMetrics(reg, logger)
	healthService := NewHealthService(logger, db, reg)

	store := database.NewPostgresStore(db.PG, logger)

	var graph *database.GraphIndex
	if db.Neo4j != nil {
		graph = database.NewGraphIndex(db.Neo4j, logger)
	}

	// Neighbor lookups default to the store; the graph is used only when asked for and available.
	var neighbors NeighborSource
	if cfg.Engine.NeighborSource == "graph" {
		if graph != nil {
			breaker := NewBreakerNeighborSource(graph, store, cfg.Engine.GraphBreaker, metrics, logger)
			healthService.AddDetail("neighbor_breaker", func() interface{} { return breaker.State() })
			neighbors = breaker
		} else {
			logger.Warn("engine.neighbor_source is graph but Neo4j is not configured, using Postgres")
		}
	}

	var (
		messageBus *messaging.MessageBus
		publisher  InteractionPublisher
	)
	if cfg.Kafka.Enabled() {
		bus, err := messaging.NewMessageBus(cfg, logger)
		if err != nil {
			return nil, err
		}
		messageBus = bus
		publisher = bus
		healthService.AddDetail("kafka", func() interface{} { return bus.GetMetrics() })
	}

	var graphSync *GraphSyncWorker
	if messageBus != nil && graph != nil {
		graphSync = NewGraphSyncWorker(messageBus, graph, logger)
	}

	orchestrator := NewRecommendationOrchestrator(&cfg.Engine, neighbors, metrics, logger)
	recommendation := NewRecommendationService(store, orchestrator, db.Redis.Warm, publisher, cfg, metrics, logger)

	return &Services{
		Auth:           NewAuthService(cfg, logger, db.Redis.Hot),
		Health:         healthService,
		RateLimit:      NewRateLimitService(cfg, logger, db.Redis.Hot),
		MessageBus:     messageBus,
		Graph:          graph,
		Store:          store,
		Metrics:        metrics,
		Orchestrator:   orchestrator,
		Recommendation: recommendation,
		GraphSync:      graphSync,
	}, nil
}
