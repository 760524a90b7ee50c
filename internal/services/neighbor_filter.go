package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/pkg/models"
)

const collaborativeReason = "similar users also liked this"

// NeighborFilter surfaces dishes favoured by users who share at least one
// interacted dish with the requester. The neighbor scan is capped instead of
// computing a full user-user similarity.
type NeighborFilter struct {
	// Neighbors overrides where neighbor users are looked up; nil uses the store.
	Neighbors   NeighborSource
	NeighborCap int
	FixedScore  float64
	logger      *logrus.Logger
}

func NewNeighborFilter(neighbors NeighborSource, neighborCap int, score float64, logger *logrus.Logger) *NeighborFilter {
	return &NeighborFilter{
		Neighbors:   neighbors,
		NeighborCap: neighborCap,
		FixedScore:  score,
		logger:      logger,
	}
}

func (f *NeighborFilter) Name() models.Strategy { return models.StrategyCollaborative }

func (f *NeighborFilter) Score(ctx context.Context, sc *ScoringContext) ([]models.RecommendationResult, error) {
	if sc.Requester == nil || sc.Limit <= 0 {
		return nil, nil
	}
	userID := sc.Requester.ID

	seen, err := sc.Store.DistinctItemIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interacted items: %w", err)
	}
	if len(seen) == 0 {
		// Cold start: no collaborative signal
		return nil, nil
	}

	neighbors := f.Neighbors
	if neighbors == nil {
		neighbors = sc.Store
	}

	similarUsers, err := neighbors.UsersWhoInteractedWith(ctx, seen, userID, f.NeighborCap)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar users: %w", err)
	}
	if len(similarUsers) == 0 {
		return nil, nil
	}

	favored, err := sc.Store.ItemsFavoredBy(ctx, similarUsers, seen, sc.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load neighbor favourites: %w", err)
	}

	seenSet := make(map[uuid.UUID]struct{}, len(seen))
	for _, id := range seen {
		seenSet[id] = struct{}{}
	}

	results := make([]models.RecommendationResult, 0, sc.Limit)
	for _, fav := range favored {
		if len(results) == sc.Limit {
			break
		}
		if _, ok := seenSet[fav.Food.ID]; ok || !fav.Food.Active {
			continue
		}
		results = append(results, models.RecommendationResult{
			Food:     fav.Food,
			Score:    clampScore(f.FixedScore),
			Strategy: models.StrategyCollaborative,
			Reason:   collaborativeReason,
		})
	}

	if f.logger != nil {
		f.logger.WithFields(logrus.Fields{
			"user_id":       userID,
			"seen_items":    len(seen),
			"similar_users": len(similarUsers),
			"results":       len(results),
		}).Debug("Collaborative filtering completed")
	}

	return results, nil
}
