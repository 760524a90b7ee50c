package services

import (
	"context"
	"fmt"

	"github.com/temcen/dishrec/pkg/models"
)

// Latitude thresholds of the regional buckets. This is a coarse stand-in for
// real geofencing; longitude does not take part.
const (
	northernLatitude = 19.0
	centralLatitude  = 14.0
)

// ResolveRegion maps a coordinate to its regional cuisine bucket.
func ResolveRegion(lat, _ float64) models.Region {
	switch {
	case lat >= northernLatitude:
		return models.RegionNorth
	case lat >= centralLatitude:
		return models.RegionCentral
	default:
		return models.RegionSouth
	}
}

// LocationResolver recommends the most viewed specialties of the requester's region.
type LocationResolver struct {
	FixedScore float64
}

func (r *LocationResolver) Name() models.Strategy { return models.StrategyLocationBased }

func (r *LocationResolver) Score(ctx context.Context, sc *ScoringContext) ([]models.RecommendationResult, error) {
	if sc.Geo == nil || sc.Limit <= 0 {
		return nil, nil
	}

	region := ResolveRegion(sc.Geo.Latitude, sc.Geo.Longitude)
	foods, err := sc.Store.FindActiveItems(ctx, sc.Limit, &models.FoodFilter{
		Region:            &region,
		OrderByPopularity: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load regional specialties: %w", err)
	}

	reason := "specialty of " + region.DisplayName()
	results := make([]models.RecommendationResult, 0, len(foods))
	for _, food := range foods {
		if !food.Active || food.Region != region {
			continue
		}
		results = append(results, models.RecommendationResult{
			Food:     food,
			Score:    clampScore(r.FixedScore),
			Strategy: models.StrategyLocationBased,
			Reason:   reason,
		})
	}
	return results, nil
}
