package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/pkg/models"
)

// GraphIndex mirrors the interaction log into Neo4j as
// (:User)-[:INTERACTED]->(:Food) edges and answers neighbor lookups from it.
type GraphIndex struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewGraphIndex(driver neo4j.DriverWithContext, logger *logrus.Logger) *GraphIndex {
	return &GraphIndex{driver: driver, logger: logger}
}

// EnsureConstraints creates the uniqueness constraints the MERGE statements rely on.
func (g *GraphIndex) EnsureConstraints(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE`,
		`CREATE CONSTRAINT food_id_unique IF NOT EXISTS FOR (f:Food) REQUIRE f.food_id IS UNIQUE`,
	}
	for _, stmt := range statements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to create graph constraint: %w", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to create graph constraint: %w", err)
		}
	}
	return nil
}

// MirrorInteraction records one interaction edge. Replaying the same
// interaction is a no-op because edges are keyed by interaction id.
func (g *GraphIndex) MirrorInteraction(ctx context.Context, interaction models.Interaction) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {user_id: $userId})
		MERGE (f:Food {food_id: $foodId})
		MERGE (u)-[r:INTERACTED {interaction_id: $interactionId}]->(f)
		ON CREATE SET r.kind = $kind, r.created_at = $createdAt`

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]interface{}{
			"userId":        interaction.UserID.String(),
			"foodId":        interaction.FoodID.String(),
			"interactionId": interaction.ID.String(),
			"kind":          string(interaction.Kind),
			"createdAt":     interaction.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to mirror interaction: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"interaction_id": interaction.ID,
		"user_id":        interaction.UserID,
		"food_id":        interaction.FoodID,
	}).Debug("Interaction mirrored to graph")

	return nil
}

// UsersWhoInteractedWith returns distinct users, other than excludeUserID,
// with an edge to any of itemIDs.
func (g *GraphIndex) UsersWhoInteractedWith(ctx context.Context, itemIDs []uuid.UUID, excludeUserID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	foodIDs := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		foodIDs[i] = id.String()
	}

	query := `
		MATCH (u:User)-[:INTERACTED]->(f:Food)
		WHERE f.food_id IN $foodIds AND u.user_id <> $userId
		RETURN DISTINCT u.user_id AS user_id
		ORDER BY user_id
		LIMIT $limit`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"foodIds": foodIDs,
		"userId":  excludeUserID.String(),
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query graph neighbors: %w", err)
	}

	var users []uuid.UUID
	for result.Next(ctx) {
		record := result.Record()
		userIDStr, ok := record.Values[0].(string)
		if !ok {
			continue
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			continue
		}
		users = append(users, userID)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read graph neighbors: %w", err)
	}

	return users, nil
}
