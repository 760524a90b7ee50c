package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/pkg/models"
)

// Request bounds, checked before any strategy runs.
const (
	MaxRecommendLimit = 50
	MaxSimilarLimit   = 20
)

// RecommendRequest is a blended recommendation request. Requester and Geo are optional.
type RecommendRequest struct {
	Requester *models.UserProfile
	Limit     int
	Geo       *models.GeoPoint
}

// pipelineStep binds a strategy to the sub-limit it is asked for.
type pipelineStep struct {
	strategy ScoringStrategy
	limit    func(req *RecommendRequest, have int) int
	// backfill steps only run while the response is short of the requested count
	backfill bool
}

// RecommendationOrchestrator merges the scoring strategies into one ranked,
// deduplicated list and serves the single-strategy entry points.
type RecommendationOrchestrator struct {
	content       *ContentStrategy
	collaborative *NeighborFilter
	location      *LocationResolver
	trending      *TrendingStrategy
	similarity    *SimilarityEngine
	taste         *TasteMatcher
	config        *config.EngineConfig
	metrics       *EngineMetrics
	logger        *logrus.Logger
}

// NewRecommendationOrchestrator wires the strategies from cfg. neighbors may be
// nil to look neighbors up in the request's store; metrics may be nil.
func NewRecommendationOrchestrator(
	cfg *config.EngineConfig,
	neighbors NeighborSource,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *RecommendationOrchestrator {
	return &RecommendationOrchestrator{
		content: &ContentStrategy{
			ScanCap:  cfg.ContentScanCap,
			MinScore: cfg.ContentMinScore,
		},
		collaborative: NewNeighborFilter(neighbors, cfg.NeighborCap, cfg.CollaborativeScore, logger),
		location:      &LocationResolver{FixedScore: cfg.LocationScore},
		trending:      &TrendingStrategy{FixedScore: cfg.TrendingScore},
		similarity:    &SimilarityEngine{RankByScore: cfg.SimilarityRankByScore},
		taste:         &TasteMatcher{FixedScore: cfg.TasteScore},
		config:        cfg,
		metrics:       metrics,
		logger:        logger,
	}
}

// pipeline lists the blended strategies in tie-break priority order.
func (o *RecommendationOrchestrator) pipeline() []pipelineStep {
	return []pipelineStep{
		{
			strategy: o.content,
			limit:    func(req *RecommendRequest, _ int) int { return req.Limit },
		},
		{
			strategy: o.collaborative,
			limit:    func(_ *RecommendRequest, _ int) int { return o.config.CollaborativeLimit },
		},
		{
			strategy: o.location,
			limit:    func(_ *RecommendRequest, _ int) int { return o.config.LocationLimit },
		},
		{
			strategy: o.trending,
			limit:    func(req *RecommendRequest, have int) int { return req.Limit - have },
			backfill: true,
		},
	}
}

// Recommend blends content, collaborative, location and trending results.
// An item placed by an earlier strategy is never replaced by a later one.
// A failing strategy contributes nothing instead of failing the request.
func (o *RecommendationOrchestrator) Recommend(ctx context.Context, store Store, req *RecommendRequest) ([]models.RecommendationResult, error) {
	startTime := time.Now()

	if err := validateLimit(req.Limit, MaxRecommendLimit); err != nil {
		return nil, err
	}
	if req.Geo != nil {
		if err := validateGeo(req.Geo.Latitude, req.Geo.Longitude); err != nil {
			return nil, err
		}
	}

	present := make(map[uuid.UUID]struct{})
	var merged []models.RecommendationResult

	for _, step := range o.pipeline() {
		if step.backfill && len(merged) >= req.Limit {
			continue
		}

		sc := &ScoringContext{
			Store:     store,
			Requester: req.Requester,
			Geo:       req.Geo,
			Limit:     step.limit(req, len(merged)),
			Exclude:   present,
		}

		name := step.strategy.Name()
		results, err := step.strategy.Score(ctx, sc)
		if err != nil {
			o.metrics.ObserveStrategyError(name)
			o.logger.WithError(err).WithField("strategy", name).Warn("Strategy failed, continuing without it")
			continue
		}

		added := 0
		for _, result := range results {
			if _, dup := present[result.Food.ID]; dup {
				continue
			}
			present[result.Food.ID] = struct{}{}
			merged = append(merged, result)
			added++
		}
		o.metrics.ObserveStrategyResults(name, added)
	}

	sortByScore(merged)
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	o.metrics.ObserveRequest("recommend", time.Since(startTime))
	o.logger.WithFields(logrus.Fields{
		"authenticated": req.Requester != nil,
		"geo":           req.Geo != nil,
		"limit":         req.Limit,
		"count":         len(merged),
		"latency":       time.Since(startTime),
	}).Debug("Recommendations generated")

	return merged, nil
}

// RecommendByLocation serves the specialties of the region containing (lat, lon).
func (o *RecommendationOrchestrator) RecommendByLocation(ctx context.Context, store Store, lat, lon float64, limit int) ([]models.RecommendationResult, error) {
	startTime := time.Now()

	if err := validateLimit(limit, MaxRecommendLimit); err != nil {
		return nil, err
	}
	if err := validateGeo(lat, lon); err != nil {
		return nil, err
	}

	results, err := o.location.Score(ctx, &ScoringContext{
		Store: store,
		Geo:   &models.GeoPoint{Latitude: lat, Longitude: lon},
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	o.metrics.ObserveStrategyResults(models.StrategyLocationBased, len(results))
	o.metrics.ObserveRequest("location", time.Since(startTime))
	return results, nil
}

// RecommendSimilar serves dishes resembling foodID. Unknown IDs yield models.ErrNotFound.
func (o *RecommendationOrchestrator) RecommendSimilar(ctx context.Context, store Store, foodID uuid.UUID, limit int) ([]models.RecommendationResult, error) {
	startTime := time.Now()

	if err := validateLimit(limit, MaxSimilarLimit); err != nil {
		return nil, err
	}

	ref, err := store.GetItem(ctx, foodID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("food %s: %w", foodID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load reference food: %w", err)
	}

	results, err := o.similarity.Score(ctx, &ScoringContext{
		Store:     store,
		Reference: ref,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}

	o.metrics.ObserveStrategyResults(models.StrategyContentBased, len(results))
	o.metrics.ObserveRequest("similar", time.Since(startTime))
	return results, nil
}

// RecommendByTaste serves the most viewed dishes matching an explicit taste query.
func (o *RecommendationOrchestrator) RecommendByTaste(ctx context.Context, store Store, query TasteQuery, limit int) ([]models.RecommendationResult, error) {
	startTime := time.Now()

	if err := validateLimit(limit, MaxRecommendLimit); err != nil {
		return nil, err
	}
	if err := query.validate(); err != nil {
		return nil, err
	}

	results, err := o.taste.Match(ctx, store, query, limit)
	if err != nil {
		return nil, err
	}

	o.metrics.ObserveStrategyResults(models.StrategyContentBased, len(results))
	o.metrics.ObserveRequest("taste", time.Since(startTime))
	return results, nil
}

// sortByScore orders results by descending score, then by strategy priority.
// Equal score and strategy keep their insertion order.
func sortByScore(results []models.RecommendationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Strategy.Priority() < results[j].Strategy.Priority()
	})
}

func validateLimit(limit, maxLimit int) error {
	if limit < 1 || limit > maxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", models.ErrValidation, maxLimit)
	}
	return nil
}

func validateGeo(lat, lon float64) error {
	if !(lat >= -90 && lat <= 90) {
		return fmt.Errorf("%w: latitude must be between -90 and 90", models.ErrValidation)
	}
	if !(lon >= -180 && lon <= 180) {
		return fmt.Errorf("%w: longitude must be between -180 and 180", models.ErrValidation)
	}
	return nil
}
