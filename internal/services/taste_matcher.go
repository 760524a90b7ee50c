package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/temcen/dishrec/pkg/models"
)

// TasteQuery is an anonymous taste search. Nil fields are not filtered on.
type TasteQuery struct {
	SpicyLevel *int
	PreferSoup *bool
	Vegetarian *bool
	Region     *models.Region
}

func (q TasteQuery) validate() error {
	if q.SpicyLevel != nil && (*q.SpicyLevel < models.MinSpicyLevel || *q.SpicyLevel > models.MaxSpicyLevel) {
		return fmt.Errorf("%w: spicy_level must be between %d and %d", models.ErrValidation, models.MinSpicyLevel, models.MaxSpicyLevel)
	}
	if q.Region != nil && !q.Region.Valid() {
		return fmt.Errorf("%w: unknown region %q", models.ErrValidation, *q.Region)
	}
	return nil
}

func (q TasteQuery) filter() *models.FoodFilter {
	filter := &models.FoodFilter{OrderByPopularity: true}

	if q.SpicyLevel != nil {
		lo := max(models.MinSpicyLevel, *q.SpicyLevel-spiceTolerance)
		hi := min(models.MaxSpicyLevel, *q.SpicyLevel+spiceTolerance)
		filter.SpicyMin = &lo
		filter.SpicyMax = &hi
	}
	if q.PreferSoup != nil {
		foodType := models.FoodTypeDry
		if *q.PreferSoup {
			foodType = models.FoodTypeSoup
		}
		filter.FoodType = &foodType
	}
	if q.Vegetarian != nil && *q.Vegetarian {
		vegetarian := true
		filter.Vegetarian = &vegetarian
	}
	if q.Region != nil {
		region := *q.Region
		filter.Region = &region
	}
	return filter
}

// TasteMatcher answers explicit taste searches without a user profile.
type TasteMatcher struct {
	FixedScore float64
}

func (m *TasteMatcher) Match(ctx context.Context, catalog Catalog, q TasteQuery, limit int) ([]models.RecommendationResult, error) {
	foods, err := catalog.FindActiveItems(ctx, limit, q.filter())
	if err != nil {
		return nil, fmt.Errorf("failed to search by taste: %w", err)
	}

	results := make([]models.RecommendationResult, 0, len(foods))
	for _, food := range foods {
		if !food.Active {
			continue
		}
		var reasons []string
		if q.SpicyLevel != nil {
			reasons = append(reasons, fmt.Sprintf("spice level %d/5", food.SpicyLevel))
		}
		if q.Vegetarian != nil && *q.Vegetarian {
			reasons = append(reasons, "vegetarian")
		}
		if q.Region != nil {
			reasons = append(reasons, fmt.Sprintf("region %s", *q.Region))
		}
		reason := "matches your taste"
		if len(reasons) > 0 {
			reason = strings.Join(reasons, ", ")
		}

		results = append(results, models.RecommendationResult{
			Food:     food,
			Score:    clampScore(m.FixedScore),
			Strategy: models.StrategyContentBased,
			Reason:   reason,
		})
	}
	return results, nil
}
