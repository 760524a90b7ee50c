package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/temcen/dishrec/pkg/models"
)

// Catalog exposes read access to active dishes.
type Catalog interface {
	FindActiveItems(ctx context.Context, limit int, filter *models.FoodFilter) ([]models.Food, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Food, error)
	// FindSimilarItems returns active dishes other than ref that share its
	// region, food type or exact spicy level, most viewed first.
	FindSimilarItems(ctx context.Context, ref *models.Food, limit int) ([]models.Food, error)
}

// NeighborSource finds users who interacted with any of the given dishes.
type NeighborSource interface {
	UsersWhoInteractedWith(ctx context.Context, itemIDs []uuid.UUID, excludeUserID uuid.UUID, limit int) ([]uuid.UUID, error)
}

// InteractionStore is the append-only interaction log and its aggregate queries.
type InteractionStore interface {
	NeighborSource
	RecordInteraction(ctx context.Context, userID, foodID uuid.UUID, kind models.InteractionKind, rating *int) (*models.Interaction, error)
	ListInteractions(ctx context.Context, userID uuid.UUID, kind models.InteractionKind, limit int) ([]models.Interaction, error)
	DistinctItemIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ItemsFavoredBy(ctx context.Context, userIDs []uuid.UUID, excludeItemIDs []uuid.UUID, limit int) ([]models.FavoredFood, error)
}

type UserStore interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

type RecommendationAuditor interface {
	SaveRecommendationRecords(ctx context.Context, records []models.RecommendationRecord) error
}

// Store is everything the recommendation engine and its transport need from persistence.
type Store interface {
	Catalog
	InteractionStore
	UserStore
	RecommendationAuditor
}

// ScoringStrategy is one independent candidate generator.
type ScoringStrategy interface {
	Name() models.Strategy
	Score(ctx context.Context, sc *ScoringContext) ([]models.RecommendationResult, error)
}

// ScoringContext carries the per-request inputs handed to every strategy.
type ScoringContext struct {
	Store     Store
	Requester *models.UserProfile
	Geo       *models.GeoPoint
	Reference *models.Food
	Limit     int
	// Exclude holds dishes already placed by an earlier strategy.
	Exclude map[uuid.UUID]struct{}
}

func (sc *ScoringContext) excluded(id uuid.UUID) bool {
	_, ok := sc.Exclude[id]
	return ok
}

// RecommendationOrchestratorInterface is what the transport layer calls.
type RecommendationOrchestratorInterface interface {
	Recommend(ctx context.Context, store Store, req *RecommendRequest) ([]models.RecommendationResult, error)
	RecommendByLocation(ctx context.Context, store Store, lat, lon float64, limit int) ([]models.RecommendationResult, error)
	RecommendSimilar(ctx context.Context, store Store, foodID uuid.UUID, limit int) ([]models.RecommendationResult, error)
	RecommendByTaste(ctx context.Context, store Store, query TasteQuery, limit int) ([]models.RecommendationResult, error)
}
