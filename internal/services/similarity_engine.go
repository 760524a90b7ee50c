package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/temcen/dishrec/pkg/models"
)

const (
	similarityAxisWeight = 0.3
	similarityBaseScore  = 0.1
	genericSimilarReason = "similar suggestion"
)

// SimilarityEngine ranks dishes sharing region, food type or spice level with
// a reference dish. Candidates come back most viewed first; RankByScore then
// stably re-sorts them by axis score so popularity only breaks ties.
type SimilarityEngine struct {
	RankByScore bool
}

// ScoreSimilarity counts matching axes between ref and candidate.
func ScoreSimilarity(ref, candidate *models.Food) (float64, string) {
	var axes []string
	if candidate.Region == ref.Region {
		axes = append(axes, fmt.Sprintf("same region (%s)", candidate.Region))
	}
	if candidate.FoodType == ref.FoodType {
		axes = append(axes, "same dish type")
	}
	if candidate.SpicyLevel == ref.SpicyLevel {
		axes = append(axes, "same spice level")
	}

	score := clampScore(float64(len(axes))*similarityAxisWeight + similarityBaseScore)
	if len(axes) == 0 {
		return score, genericSimilarReason
	}
	return score, "similar: " + strings.Join(axes, ", ")
}

func (e *SimilarityEngine) Name() models.Strategy { return models.StrategyContentBased }

func (e *SimilarityEngine) Score(ctx context.Context, sc *ScoringContext) ([]models.RecommendationResult, error) {
	if sc.Reference == nil || sc.Limit <= 0 {
		return nil, nil
	}
	return e.Similar(ctx, sc.Store, sc.Reference, sc.Limit)
}

func (e *SimilarityEngine) Similar(ctx context.Context, catalog Catalog, ref *models.Food, limit int) ([]models.RecommendationResult, error) {
	candidates, err := catalog.FindSimilarItems(ctx, ref, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load similar candidates: %w", err)
	}

	results := make([]models.RecommendationResult, 0, len(candidates))
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.ID == ref.ID || !candidate.Active {
			continue
		}
		score, reason := ScoreSimilarity(ref, candidate)
		results = append(results, models.RecommendationResult{
			Food:     *candidate,
			Score:    score,
			Strategy: models.StrategyContentBased,
			Reason:   reason,
		})
	}

	if e.RankByScore {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
