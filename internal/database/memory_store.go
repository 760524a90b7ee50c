package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/temcen/dishrec/pkg/models"
)

// MemoryStore keeps the catalog, users and interaction log in process.
// Ordering matches PostgresStore except that ties fall back to insertion order.
type MemoryStore struct {
	mu           sync.RWMutex
	foods        []*models.Food
	foodIndex    map[uuid.UUID]*models.Food
	users        map[uuid.UUID]*models.UserProfile
	interactions []models.Interaction
	records      []models.RecommendationRecord
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		foodIndex: make(map[uuid.UUID]*models.Food),
		users:     make(map[uuid.UUID]*models.UserProfile),
		now:       time.Now,
	}
}

// AddFood inserts or replaces a dish. A nil ID is assigned.
func (m *MemoryStore) AddFood(food models.Food) models.Food {
	m.mu.Lock()
	defer m.mu.Unlock()

	if food.ID == uuid.Nil {
		food.ID = uuid.New()
	}
	if food.CreatedAt.IsZero() {
		food.CreatedAt = m.now()
	}
	if existing, ok := m.foodIndex[food.ID]; ok {
		*existing = food
		return food
	}
	stored := food
	m.foods = append(m.foods, &stored)
	m.foodIndex[food.ID] = &stored
	return food
}

// AddUser inserts or replaces a user profile. A nil ID is assigned.
func (m *MemoryStore) AddUser(user models.UserProfile) models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stored := user
	m.users[user.ID] = &stored
	return user
}

// Records returns the saved recommendation audit rows.
func (m *MemoryStore) Records() []models.RecommendationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.RecommendationRecord(nil), m.records...)
}

func (m *MemoryStore) FindActiveItems(_ context.Context, limit int, filter *models.FoodFilter) ([]models.Food, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var excluded map[uuid.UUID]struct{}
	if filter != nil && len(filter.ExcludeIDs) > 0 {
		excluded = make(map[uuid.UUID]struct{}, len(filter.ExcludeIDs))
		for _, id := range filter.ExcludeIDs {
			excluded[id] = struct{}{}
		}
	}

	var matches []models.Food
	for _, f := range m.foods {
		if !f.Active || !matchesFilter(f, filter) {
			continue
		}
		if _, skip := excluded[f.ID]; skip {
			continue
		}
		matches = append(matches, *f)
	}

	if filter != nil && filter.OrderByPopularity {
		sortByViews(matches)
	}
	return truncateFoods(matches, limit), nil
}

func matchesFilter(f *models.Food, filter *models.FoodFilter) bool {
	if filter == nil {
		return true
	}
	switch {
	case filter.Region != nil && f.Region != *filter.Region:
		return false
	case filter.FoodType != nil && f.FoodType != *filter.FoodType:
		return false
	case filter.Category != nil && f.Category != *filter.Category:
		return false
	case filter.Vegetarian != nil && f.Vegetarian != *filter.Vegetarian:
		return false
	case filter.Vegan != nil && f.Vegan != *filter.Vegan:
		return false
	case filter.SpicyMin != nil && f.SpicyLevel < *filter.SpicyMin:
		return false
	case filter.SpicyMax != nil && f.SpicyLevel > *filter.SpicyMax:
		return false
	}
	return true
}

func sortByViews(foods []models.Food) {
	sort.SliceStable(foods, func(i, j int) bool {
		return foods[i].ViewCount > foods[j].ViewCount
	})
}

func truncateFoods(foods []models.Food, limit int) []models.Food {
	if limit >= 0 && len(foods) > limit {
		return foods[:limit]
	}
	return foods
}

func (m *MemoryStore) GetItem(_ context.Context, id uuid.UUID) (*models.Food, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.foodIndex[id]
	if !ok {
		return nil, fmt.Errorf("food %s: %w", id, models.ErrNotFound)
	}
	food := *f
	return &food, nil
}

func (m *MemoryStore) FindSimilarItems(_ context.Context, ref *models.Food, limit int) ([]models.Food, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []models.Food
	for _, f := range m.foods {
		if !f.Active || f.ID == ref.ID {
			continue
		}
		if f.Region == ref.Region || f.FoodType == ref.FoodType || f.SpicyLevel == ref.SpicyLevel {
			matches = append(matches, *f)
		}
	}
	sortByViews(matches)
	return truncateFoods(matches, limit), nil
}

func (m *MemoryStore) UsersWhoInteractedWith(_ context.Context, itemIDs []uuid.UUID, excludeUserID uuid.UUID, limit int) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}

	seen := make(map[uuid.UUID]struct{})
	var users []uuid.UUID
	for _, in := range m.interactions {
		if len(users) >= limit {
			break
		}
		if in.UserID == excludeUserID {
			continue
		}
		if _, ok := wanted[in.FoodID]; !ok {
			continue
		}
		if _, dup := seen[in.UserID]; dup {
			continue
		}
		seen[in.UserID] = struct{}{}
		users = append(users, in.UserID)
	}
	return users, nil
}

func (m *MemoryStore) DistinctItemIDsForUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, in := range m.interactions {
		if in.UserID != userID {
			continue
		}
		if _, dup := seen[in.FoodID]; dup {
			continue
		}
		seen[in.FoodID] = struct{}{}
		ids = append(ids, in.FoodID)
	}
	return ids, nil
}

func (m *MemoryStore) ItemsFavoredBy(_ context.Context, userIDs []uuid.UUID, excludeItemIDs []uuid.UUID, limit int) ([]models.FavoredFood, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		users[id] = struct{}{}
	}
	excluded := make(map[uuid.UUID]struct{}, len(excludeItemIDs))
	for _, id := range excludeItemIDs {
		excluded[id] = struct{}{}
	}

	counts := make(map[uuid.UUID]int)
	var order []uuid.UUID
	for _, in := range m.interactions {
		if _, ok := users[in.UserID]; !ok {
			continue
		}
		if _, skip := excluded[in.FoodID]; skip {
			continue
		}
		f, ok := m.foodIndex[in.FoodID]
		if !ok || !f.Active {
			continue
		}
		if counts[in.FoodID] == 0 {
			order = append(order, in.FoodID)
		}
		counts[in.FoodID]++
	}

	favored := make([]models.FavoredFood, 0, len(order))
	for _, id := range order {
		favored = append(favored, models.FavoredFood{Food: *m.foodIndex[id], Count: counts[id]})
	}
	sort.SliceStable(favored, func(i, j int) bool {
		return favored[i].Count > favored[j].Count
	})
	if len(favored) > limit {
		favored = favored[:limit]
	}
	return favored, nil
}

func (m *MemoryStore) RecordInteraction(_ context.Context, userID, foodID uuid.UUID, kind models.InteractionKind, rating *int) (*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.foodIndex[foodID]
	if !ok {
		return nil, fmt.Errorf("food %s: %w", foodID, models.ErrNotFound)
	}

	interaction := models.Interaction{
		ID:        uuid.New(),
		UserID:    userID,
		FoodID:    foodID,
		Kind:      kind,
		Rating:    rating,
		CreatedAt: m.now(),
	}
	m.interactions = append(m.interactions, interaction)

	if kind == models.InteractionView {
		f.ViewCount++
	}
	return &interaction, nil
}

func (m *MemoryStore) ListInteractions(_ context.Context, userID uuid.UUID, kind models.InteractionKind, limit int) ([]models.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Interaction
	for i := len(m.interactions) - 1; i >= 0 && len(out) < limit; i-- {
		in := m.interactions[i]
		if in.UserID != userID {
			continue
		}
		if kind != "" && in.Kind != kind {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func (m *MemoryStore) GetUserProfile(_ context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	user := *u
	return &user, nil
}

func (m *MemoryStore) SaveRecommendationRecords(_ context.Context, records []models.RecommendationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = m.now()
		}
		m.records = append(m.records, r)
	}
	return nil
}
