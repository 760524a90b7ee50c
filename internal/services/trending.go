package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/temcen/dishrec/pkg/models"
)

const trendingReason = "currently popular"

// TrendingStrategy backfills with the most viewed active dishes.
type TrendingStrategy struct {
	FixedScore float64
}

func (s *TrendingStrategy) Name() models.Strategy { return models.StrategyTrending }

func (s *TrendingStrategy) Score(ctx context.Context, sc *ScoringContext) ([]models.RecommendationResult, error) {
	if sc.Limit <= 0 {
		return nil, nil
	}

	exclude := make([]uuid.UUID, 0, len(sc.Exclude))
	for id := range sc.Exclude {
		exclude = append(exclude, id)
	}
	sort.Slice(exclude, func(i, j int) bool { return exclude[i].String() < exclude[j].String() })

	foods, err := sc.Store.FindActiveItems(ctx, sc.Limit, &models.FoodFilter{
		OrderByPopularity: true,
		ExcludeIDs:        exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load trending dishes: %w", err)
	}

	results := make([]models.RecommendationResult, 0, len(foods))
	for _, food := range foods {
		if len(results) == sc.Limit {
			break
		}
		if !food.Active || sc.excluded(food.ID) {
			continue
		}
		results = append(results, models.RecommendationResult{
			Food:     food,
			Score:    clampScore(s.FixedScore),
			Strategy: models.StrategyTrending,
			Reason:   trendingReason,
		})
	}
	return results, nil
}
