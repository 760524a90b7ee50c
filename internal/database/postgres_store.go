package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/pkg/models"
)

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const foodColumns = `f.id, f.name, f.name_en, f.description, f.region, f.food_type,
	COALESCE(f.category, ''), f.spicy_level, f.is_vegetarian, f.is_vegan, f.image_url,
	f.view_count, f.is_active, f.created_at,
	COALESCE((SELECT array_agg(a.name ORDER BY a.name)
		FROM food_allergies fa JOIN allergies a ON a.id = fa.allergy_id
		WHERE fa.food_id = f.id), '{}')`

// PostgresStore is the relational system of record for dishes, users,
// interactions and recommendation audit rows.
type PostgresStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewPostgresStore(db Querier, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func scanFood(row pgx.Row, extra ...any) (models.Food, error) {
	var (
		food     models.Food
		region   string
		foodType string
	)
	dest := []any{
		&food.ID, &food.Name, &food.NameEn, &food.Description, &region, &foodType,
		&food.Category, &food.SpicyLevel, &food.Vegetarian, &food.Vegan, &food.ImageURL,
		&food.ViewCount, &food.Active, &food.CreatedAt, &food.Allergens,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Food{}, err
	}
	food.Region = models.Region(region)
	food.FoodType = models.FoodType(foodType)
	return food, nil
}

func (s *PostgresStore) FindActiveItems(ctx context.Context, limit int, filter *models.FoodFilter) ([]models.Food, error) {
	conditions := []string{"f.is_active = true"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	orderBy := "f.created_at, f.id"
	if filter != nil {
		if filter.Region != nil {
			conditions = append(conditions, "f.region = "+arg(string(*filter.Region)))
		}
		if filter.FoodType != nil {
			conditions = append(conditions, "f.food_type = "+arg(string(*filter.FoodType)))
		}
		if filter.Category != nil {
			conditions = append(conditions, "f.category = "+arg(*filter.Category))
		}
		if filter.Vegetarian != nil {
			conditions = append(conditions, "f.is_vegetarian = "+arg(*filter.Vegetarian))
		}
		if filter.Vegan != nil {
			conditions = append(conditions, "f.is_vegan = "+arg(*filter.Vegan))
		}
		if filter.SpicyMin != nil {
			conditions = append(conditions, "f.spicy_level >= "+arg(*filter.SpicyMin))
		}
		if filter.SpicyMax != nil {
			conditions = append(conditions, "f.spicy_level <= "+arg(*filter.SpicyMax))
		}
		if len(filter.ExcludeIDs) > 0 {
			conditions = append(conditions, "NOT (f.id = ANY("+arg(filter.ExcludeIDs)+"))")
		}
		if filter.OrderByPopularity {
			orderBy = "f.view_count DESC, f.id"
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM foods f WHERE %s ORDER BY %s LIMIT %s`,
		foodColumns, strings.Join(conditions, " AND "), orderBy, arg(limit))

	return s.queryFoods(ctx, query, args...)
}

func (s *PostgresStore) GetItem(ctx context.Context, id uuid.UUID) (*models.Food, error) {
	query := fmt.Sprintf(`SELECT %s FROM foods f WHERE f.id = $1`, foodColumns)

	food, err := scanFood(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("food %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get food: %w", err)
	}
	return &food, nil
}

func (s *PostgresStore) FindSimilarItems(ctx context.Context, ref *models.Food, limit int) ([]models.Food, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM foods f
		WHERE f.is_active = true
		  AND f.id <> $1
		  AND (f.region = $2 OR f.food_type = $3 OR f.spicy_level = $4)
		ORDER BY f.view_count DESC, f.id
		LIMIT $5`, foodColumns)

	return s.queryFoods(ctx, query, ref.ID, string(ref.Region), string(ref.FoodType), ref.SpicyLevel, limit)
}

func (s *PostgresStore) queryFoods(ctx context.Context, query string, args ...any) ([]models.Food, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	var foods []models.Food
	for rows.Next() {
		food, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		foods = append(foods, food)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate foods: %w", err)
	}
	return foods, nil
}

func (s *PostgresStore) UsersWhoInteractedWith(ctx context.Context, itemIDs []uuid.UUID, excludeUserID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT user_id FROM interactions
		WHERE food_id = ANY($1) AND user_id <> $2
		ORDER BY user_id
		LIMIT $3`, itemIDs, excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer rows.Close()

	return collectIDs(rows)
}

func (s *PostgresStore) DistinctItemIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT food_id FROM interactions
		WHERE user_id = $1
		ORDER BY food_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interacted foods: %w", err)
	}
	defer rows.Close()

	return collectIDs(rows)
}

func collectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) ItemsFavoredBy(ctx context.Context, userIDs []uuid.UUID, excludeItemIDs []uuid.UUID, limit int) ([]models.FavoredFood, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if excludeItemIDs == nil {
		excludeItemIDs = []uuid.UUID{}
	}

	query := fmt.Sprintf(`
		SELECT %s, COUNT(i.id)
		FROM interactions i
		JOIN foods f ON f.id = i.food_id
		WHERE i.user_id = ANY($1)
		  AND NOT (i.food_id = ANY($2))
		  AND f.is_active = true
		GROUP BY f.id
		ORDER BY COUNT(i.id) DESC, f.id
		LIMIT $3`, foodColumns)

	rows, err := s.db.Query(ctx, query, userIDs, excludeItemIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query favored foods: %w", err)
	}
	defer rows.Close()

	var favored []models.FavoredFood
	for rows.Next() {
		var count int64
		food, err := scanFood(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favored food: %w", err)
		}
		favored = append(favored, models.FavoredFood{Food: food, Count: int(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favored foods: %w", err)
	}
	return favored, nil
}

// RecordInteraction appends an interaction. View interactions also bump the
// dish's view counter in the same transaction.
func (s *PostgresStore) RecordInteraction(ctx context.Context, userID, foodID uuid.UUID, kind models.InteractionKind, rating *int) (*models.Interaction, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM foods WHERE id = $1)`, foodID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check food: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("food %s: %w", foodID, models.ErrNotFound)
	}

	interaction := &models.Interaction{
		UserID: userID,
		FoodID: foodID,
		Kind:   kind,
		Rating: rating,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO interactions (user_id, food_id, interaction_type, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		userID, foodID, string(kind), rating,
	).Scan(&interaction.ID, &interaction.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert interaction: %w", err)
	}

	if kind == models.InteractionView {
		if _, err := tx.Exec(ctx, `UPDATE foods SET view_count = view_count + 1 WHERE id = $1`, foodID); err != nil {
			return nil, fmt.Errorf("failed to increment view count: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit interaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":          userID,
		"food_id":          foodID,
		"interaction_type": kind,
	}).Debug("Interaction recorded")

	return interaction, nil
}

// ListInteractions returns a user's interactions newest first. An empty kind lists all kinds.
func (s *PostgresStore) ListInteractions(ctx context.Context, userID uuid.UUID, kind models.InteractionKind, limit int) ([]models.Interaction, error) {
	query := `
		SELECT id, user_id, food_id, interaction_type, rating, created_at
		FROM interactions
		WHERE user_id = $1`
	args := []any{userID}
	if kind != "" {
		query += ` AND interaction_type = $2`
		args = append(args, string(kind))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		var (
			interaction models.Interaction
			kindText    string
		)
		if err := rows.Scan(&interaction.ID, &interaction.UserID, &interaction.FoodID,
			&kindText, &interaction.Rating, &interaction.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interaction.Kind = models.InteractionKind(kindText)
		interactions = append(interactions, interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return interactions, nil
}

func (s *PostgresStore) GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var (
		profile models.UserProfile
		regions []string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, email, full_name, spicy_level, prefer_soup, is_vegetarian,
		       COALESCE(allergens, '{}'), COALESCE(favorite_regions, '{}'), is_active, created_at
		FROM users
		WHERE id = $1`, userID,
	).Scan(&profile.ID, &profile.Email, &profile.FullName,
		&profile.Taste.SpicyLevel, &profile.Taste.PreferSoup, &profile.Taste.Vegetarian,
		&profile.Taste.Allergens, &regions, &profile.Active, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	for _, r := range regions {
		profile.Taste.FavoriteRegions = append(profile.Taste.FavoriteRegions, models.Region(r))
	}
	return &profile, nil
}

func (s *PostgresStore) SaveRecommendationRecords(ctx context.Context, records []models.RecommendationRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		rows = append(rows, []any{
			id, r.UserID, r.FoodID, string(r.Strategy), r.Score, r.Reason,
			r.Latitude, r.Longitude, createdAt,
		})
	}

	_, err := s.db.CopyFrom(ctx,
		pgx.Identifier{"recommendations"},
		[]string{"id", "user_id", "food_id", "recommendation_type", "score", "reason", "latitude", "longitude", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to save recommendation records: %w", err)
	}
	return nil
}
