package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/pkg/models"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// InteractionPublisher emits recorded interactions to downstream consumers.
type InteractionPublisher interface {
	PublishInteraction(ctx context.Context, interaction models.Interaction) error
}

// RecommendationServiceInterface is what the HTTP handlers depend on.
type RecommendationServiceInterface interface {
	Recommend(ctx context.Context, userID *uuid.UUID, limit int, geo *models.GeoPoint) (*models.RecommendationResponse, error)
	RecommendByLocation(ctx context.Context, lat, lon float64, limit int) (*models.RecommendationResponse, error)
	RecommendSimilar(ctx context.Context, foodID uuid.UUID, limit int) (*models.RecommendationResponse, error)
	RecommendByTaste(ctx context.Context, query TasteQuery, limit int) (*models.RecommendationResponse, error)
	RecordInteraction(ctx context.Context, userID uuid.UUID, req *models.InteractionRequest) (*models.Interaction, error)
	History(ctx context.Context, userID uuid.UUID, kind models.InteractionKind, limit int) (*models.UserHistoryResponse, error)
}

// RecommendationService binds the engine to a store and adds response
// caching, audit records and interaction events around it.
type RecommendationService struct {
	store        Store
	orchestrator RecommendationOrchestratorInterface
	cache        *redis.Client // warm tier, nil disables caching
	publisher    InteractionPublisher
	config       *config.Config
	metrics      *EngineMetrics
	logger       *logrus.Logger
}

func NewRecommendationService(
	store Store,
	orchestrator RecommendationOrchestratorInterface,
	cache *redis.Client,
	publisher InteractionPublisher,
	cfg *config.Config,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *RecommendationService {
	if !cfg.Caching.Enabled {
		cache = nil
	}
	return &RecommendationService{
		store:        store,
		orchestrator: orchestrator,
		cache:        cache,
		publisher:    publisher,
		config:       cfg,
		metrics:      metrics,
		logger:       logger,
	}
}

// Recommend serves the blended list. userID is nil for anonymous callers.
func (s *RecommendationService) Recommend(ctx context.Context, userID *uuid.UUID, limit int, geo *models.GeoPoint) (*models.RecommendationResponse, error) {
	var requester *models.UserProfile
	if userID != nil {
		profile, err := s.store.GetUserProfile(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load requester: %w", err)
		}
		requester = profile
	}

	results, err := s.orchestrator.Recommend(ctx, s.store, &RecommendRequest{
		Requester: requester,
		Limit:     limit,
		Geo:       geo,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, geo, results)

	return buildResponse(results, fmt.Sprintf("Found %d recommendations", len(results))), nil
}

func (s *RecommendationService) RecommendByLocation(ctx context.Context, lat, lon float64, limit int) (*models.RecommendationResponse, error) {
	// The cache key only carries the region, so out-of-range coordinates
	// must be rejected before a lookup.
	if err := validateGeo(lat, lon); err != nil {
		return nil, err
	}
	region := ResolveRegion(lat, lon)
	key := fmt.Sprintf("rec:location:%s:%d", region, limit)

	return s.cached(ctx, key, func() (*models.RecommendationResponse, error) {
		results, err := s.orchestrator.RecommendByLocation(ctx, s.store, lat, lon, limit)
		if err != nil {
			return nil, err
		}
		return buildResponse(results, "Dishes from "+region.DisplayName()), nil
	})
}

func (s *RecommendationService) RecommendSimilar(ctx context.Context, foodID uuid.UUID, limit int) (*models.RecommendationResponse, error) {
	key := fmt.Sprintf("rec:similar:%s:%d", foodID, limit)

	return s.cached(ctx, key, func() (*models.RecommendationResponse, error) {
		results, err := s.orchestrator.RecommendSimilar(ctx, s.store, foodID, limit)
		if err != nil {
			return nil, err
		}
		return buildResponse(results, ""), nil
	})
}

func (s *RecommendationService) RecommendByTaste(ctx context.Context, query TasteQuery, limit int) (*models.RecommendationResponse, error) {
	key := fmt.Sprintf("rec:taste:%s:%d", query.cacheKey(), limit)

	return s.cached(ctx, key, func() (*models.RecommendationResponse, error) {
		results, err := s.orchestrator.RecommendByTaste(ctx, s.store, query, limit)
		if err != nil {
			return nil, err
		}
		return buildResponse(results, ""), nil
	})
}

// RecordInteraction stores an interaction and publishes it. Publishing is
// best effort; the stored interaction is the source of truth.
func (s *RecommendationService) RecordInteraction(ctx context.Context, userID uuid.UUID, req *models.InteractionRequest) (*models.Interaction, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown interaction type %q", models.ErrValidation, req.Kind)
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", models.ErrValidation)
	}

	interaction, err := s.store.RecordInteraction(ctx, userID, req.FoodID, req.Kind, req.Rating)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishInteraction(ctx, *interaction); err != nil {
			s.logger.WithError(err).WithField("interaction_id", interaction.ID).Warn("Failed to publish interaction event")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":          userID,
		"food_id":          req.FoodID,
		"interaction_type": req.Kind,
	}).Info("Interaction recorded")

	return interaction, nil
}

// History lists a user's interactions newest first. An empty kind lists all kinds.
func (s *RecommendationService) History(ctx context.Context, userID uuid.UUID, kind models.InteractionKind, limit int) (*models.UserHistoryResponse, error) {
	if err := validateLimit(limit, MaxHistoryLimit); err != nil {
		return nil, err
	}
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown interaction type %q", models.ErrValidation, kind)
	}

	interactions, err := s.store.ListInteractions(ctx, userID, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	if interactions == nil {
		interactions = []models.Interaction{}
	}

	return &models.UserHistoryResponse{
		Interactions: interactions,
		Total:        len(interactions),
	}, nil
}

// cached serves key from the warm tier, computing and storing it on a miss.
// Cache failures never fail the request.
func (s *RecommendationService) cached(ctx context.Context, key string, compute func() (*models.RecommendationResponse, error)) (*models.RecommendationResponse, error) {
	if s.cache == nil {
		return compute()
	}

	data, err := s.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var response models.RecommendationResponse
		if jsonErr := json.Unmarshal(data, &response); jsonErr == nil {
			s.metrics.ObserveCache(true)
			response.CacheHit = true
			return &response, nil
		}
		s.logger.WithField("key", key).Warn("Discarding unreadable cached response")
	case !errors.Is(err, redis.Nil):
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read recommendation cache")
	}
	s.metrics.ObserveCache(false)

	response, err := compute()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(response); err == nil {
		if err := s.cache.Set(ctx, key, data, s.config.Caching.RecommendationsTTL).Err(); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Failed to write recommendation cache")
		}
	}
	return response, nil
}

func (s *RecommendationService) audit(ctx context.Context, userID *uuid.UUID, geo *models.GeoPoint, results []models.RecommendationResult) {
	if !s.config.Engine.AuditRecommendations || len(results) == 0 {
		return
	}

	now := time.Now().UTC()
	records := make([]models.RecommendationRecord, len(results))
	for i, r := range results {
		records[i] = models.RecommendationRecord{
			ID:        uuid.New(),
			UserID:    userID,
			FoodID:    r.Food.ID,
			Strategy:  r.Strategy,
			Score:     r.Score,
			Reason:    r.Reason,
			CreatedAt: now,
		}
		if geo != nil {
			lat, lon := geo.Latitude, geo.Longitude
			records[i].Latitude = &lat
			records[i].Longitude = &lon
		}
	}

	if err := s.store.SaveRecommendationRecords(ctx, records); err != nil {
		s.logger.WithError(err).Warn("Failed to save recommendation records")
	}
}

func buildResponse(results []models.RecommendationResult, message string) *models.RecommendationResponse {
	recommendations := make([]models.RecommendedFood, len(results))
	for i, r := range results {
		recommendations[i] = r.ToRecommendedFood()
	}
	return &models.RecommendationResponse{
		Success:         true,
		Recommendations: recommendations,
		Total:           len(recommendations),
		Message:         message,
		GeneratedAt:     time.Now().UTC(),
	}
}

func (q TasteQuery) cacheKey() string {
	parts := make([]string, 4)
	if q.SpicyLevel != nil {
		parts[0] = strconv.Itoa(*q.SpicyLevel)
	}
	if q.PreferSoup != nil {
		parts[1] = strconv.FormatBool(*q.PreferSoup)
	}
	if q.Vegetarian != nil {
		parts[2] = strconv.FormatBool(*q.Vegetarian)
	}
	if q.Region != nil {
		parts[3] = string(*q.Region)
	}
	return strings.Join(parts, ":")
}
