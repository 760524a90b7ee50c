package models

import (
	"time"

	"github.com/google/uuid"
)

// Strategy tags the algorithm that contributed a recommendation.
type Strategy string

const (
	StrategyContentBased  Strategy = "content_based"
	StrategyCollaborative Strategy = "collaborative"
	StrategyLocationBased Strategy = "location_based"
	StrategyTrending      Strategy = "trending"
)

// Priority orders strategies for tie-breaking; lower wins.
func (s Strategy) Priority() int {
	switch s {
	case StrategyContentBased:
		return 0
	case StrategyCollaborative:
		return 1
	case StrategyLocationBased:
		return 2
	case StrategyTrending:
		return 3
	default:
		return 4
	}
}

// RecommendationResult is a scored, explained candidate. Not persisted by the engine.
type RecommendationResult struct {
	Food     Food     `json:"food"`
	Score    float64  `json:"score"`
	Strategy Strategy `json:"recommendation_type"`
	Reason   string   `json:"reason"`
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// RecommendationRecord is the audit row written for a served recommendation.
type RecommendationRecord struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	FoodID    uuid.UUID  `json:"food_id" db:"food_id"`
	Strategy  Strategy   `json:"recommendation_type" db:"recommendation_type"`
	Score     float64    `json:"score" db:"score"`
	Reason    string     `json:"reason" db:"reason"`
	Latitude  *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64   `json:"longitude,omitempty" db:"longitude"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

type RecommendationRequest struct {
	Limit     int      `json:"limit" validate:"min=1,max=50"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
}

// RecommendedFood is the wire form of a RecommendationResult.
type RecommendedFood struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	NameEn      *string   `json:"name_en,omitempty"`
	Description *string   `json:"description,omitempty"`
	Region      Region    `json:"region"`
	FoodType    FoodType  `json:"food_type"`
	SpicyLevel  int       `json:"spicy_level"`
	Vegetarian  bool      `json:"is_vegetarian"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Score       float64   `json:"score"`
	Strategy    Strategy  `json:"recommendation_type"`
	Reason      string    `json:"reason"`
}

type RecommendationResponse struct {
	Success         bool              `json:"success"`
	Recommendations []RecommendedFood `json:"recommendations"`
	Total           int               `json:"total"`
	Message         string            `json:"message,omitempty"`
	CacheHit        bool              `json:"cache_hit"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// ToRecommendedFood flattens a result into its wire form.
func (r RecommendationResult) ToRecommendedFood() RecommendedFood {
	return RecommendedFood{
		ID:          r.Food.ID,
		Name:        r.Food.Name,
		NameEn:      r.Food.NameEn,
		Description: r.Food.Description,
		Region:      r.Food.Region,
		FoodType:    r.Food.FoodType,
		SpicyLevel:  r.Food.SpicyLevel,
		Vegetarian:  r.Food.Vegetarian,
		ImageURL:    r.Food.ImageURL,
		Score:       r.Score,
		Strategy:    r.Strategy,
		Reason:      r.Reason,
	}
}
