package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/temcen/dishrec/pkg/models"
)

const (
	contentBaseScore       = 0.5
	spiceMatchBonus        = 0.15
	dishTypeMatchBonus     = 0.15
	vegetarianMatchBonus   = 0.20
	preferredRegionBonus   = 0.10
	allergenPenalty        = -0.30
	spiceTolerance         = 1
	genericContentReason   = "popular pick"
	contentReasonPrefix    = "matches "
	contentReasonSeparator = ", "
)

// ContentScore is the preference match of one dish for one taste profile.
type ContentScore struct {
	Score   float64
	Reasons []string
}

// Reason renders the matched reasons as a single explanation.
func (c ContentScore) Reason() string {
	if len(c.Reasons) == 0 {
		return genericContentReason
	}
	return contentReasonPrefix + strings.Join(c.Reasons, contentReasonSeparator)
}

// ScoreContent computes the rule-based preference match of food for taste.
// Adjustments are summed onto the base score and the total is clamped once,
// so several allergens can drive the score down to zero.
func ScoreContent(taste models.TasteProfile, food *models.Food) ContentScore {
	var adjustments []float64
	var reasons []string

	if absInt(food.SpicyLevel-taste.EffectiveSpicyLevel()) <= spiceTolerance {
		adjustments = append(adjustments, spiceMatchBonus)
		reasons = append(reasons, "fits spice preference")
	}

	prefersSoup := taste.PrefersSoup()
	if (prefersSoup && food.FoodType == models.FoodTypeSoup) ||
		(!prefersSoup && food.FoodType == models.FoodTypeDry) {
		adjustments = append(adjustments, dishTypeMatchBonus)
		reasons = append(reasons, "matches dish-type preference")
	}

	if taste.Vegetarian && food.Vegetarian {
		adjustments = append(adjustments, vegetarianMatchBonus)
		reasons = append(reasons, "vegetarian match")
	}

	for _, region := range taste.FavoriteRegions {
		if region == food.Region {
			adjustments = append(adjustments, preferredRegionBonus)
			reasons = append(reasons, fmt.Sprintf("preferred region (%s)", food.Region))
			break
		}
	}

	if len(taste.Allergens) > 0 {
		declared := models.AllergenSet(taste.Allergens)
		for _, allergen := range food.Allergens {
			if _, ok := declared[models.NormalizeAllergen(allergen)]; ok {
				adjustments = append(adjustments, allergenPenalty)
				reasons = append(reasons, fmt.Sprintf("contains %s", allergen))
			}
		}
	}

	return ContentScore{
		Score:   clampScore(contentBaseScore + floats.Sum(adjustments)),
		Reasons: reasons,
	}
}

// ContentStrategy scans a bounded slice of the active catalog and keeps the
// dishes whose preference match reaches the configured minimum.
type ContentStrategy struct {
	ScanCap  int
	MinScore float64
}

func (s *ContentStrategy) Name() models.Strategy { return models.StrategyContentBased }

func (s *ContentStrategy) Score(ctx context.Context, sc *ScoringContext) ([]models.RecommendationResult, error) {
	if sc.Requester == nil || sc.Requester.Taste.IsEmpty() {
		return nil, nil
	}

	foods, err := sc.Store.FindActiveItems(ctx, s.ScanCap, nil)
	if err != nil {
		return nil, fmt.Errorf("content scan failed: %w", err)
	}

	var results []models.RecommendationResult
	for i := range foods {
		food := &foods[i]
		if !food.Active {
			continue
		}
		match := ScoreContent(sc.Requester.Taste, food)
		if match.Score < s.MinScore {
			continue
		}
		results = append(results, models.RecommendationResult{
			Food:     *food,
			Score:    match.Score,
			Strategy: models.StrategyContentBased,
			Reason:   match.Reason(),
		})
	}
	return results, nil
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(1, score))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
