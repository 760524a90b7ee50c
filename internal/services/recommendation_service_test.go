package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/internal/database"
	"github.com/temcen/dishrec/pkg/models"
)

type MockInteractionPublisher struct {
	mock.Mock
}

func (m *MockInteractionPublisher) PublishInteraction(ctx context.Context, interaction models.Interaction) error {
	args := m.Called(ctx, interaction)
	return args.Error(0)
}

func newServiceConfig(audit bool) *config.Config {
	return &config.Config{
		Engine:  func() config.EngineConfig { c := config.DefaultEngineConfig(); c.AuditRecommendations = audit; return c }(),
		Caching: config.CachingConfig{Enabled: true, RecommendationsTTL: time.Minute},
	}
}

func newTestRecommendationService(store Store, publisher InteractionPublisher, cache *redis.Client, audit bool) *RecommendationService {
	cfg := newServiceConfig(audit)
	orchestrator := NewRecommendationOrchestrator(&cfg.Engine, nil, nil, testLogger())
	return NewRecommendationService(store, orchestrator, cache, publisher, cfg, nil, testLogger())
}

func TestRecommendationService_Recommend(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	menu := seedCatalog(t, store)
	user := store.AddUser(models.UserProfile{
		Email:  "giang@example.com",
		Active: true,
		Taste:  models.TasteProfile{SpicyLevel: intPtr(4), PreferSoup: boolPtr(true)},
	})

	t.Run("personalized response is audited", func(t *testing.T) {
		service := newTestRecommendationService(store, nil, nil, true)

		response, err := service.Recommend(ctx, &user.ID, 3, &models.GeoPoint{Latitude: 16.46, Longitude: 107.59})
		require.NoError(t, err)

		assert.True(t, response.Success)
		assert.Equal(t, 3, response.Total)
		assert.Len(t, response.Recommendations, 3)
		assert.Equal(t, "Found 3 recommendations", response.Message)
		assert.Equal(t, menu.BunBoHue.ID, response.Recommendations[0].ID)
		assert.False(t, response.CacheHit)

		records := store.Records()
		require.Len(t, records, 3)
		for i, record := range records {
			assert.Equal(t, &user.ID, record.UserID)
			assert.Equal(t, response.Recommendations[i].ID, record.FoodID)
			assert.Equal(t, response.Recommendations[i].Strategy, record.Strategy)
			require.NotNil(t, record.Latitude)
			assert.Equal(t, 16.46, *record.Latitude)
		}
	})

	t.Run("anonymous without audit", func(t *testing.T) {
		before := len(store.Records())
		service := newTestRecommendationService(store, nil, nil, false)

		response, err := service.Recommend(ctx, nil, 2, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, response.Total)
		assert.Len(t, store.Records(), before)
	})

	t.Run("unknown requester", func(t *testing.T) {
		service := newTestRecommendationService(store, nil, nil, false)
		unknown := uuid.New()

		_, err := service.Recommend(ctx, &unknown, 2, nil)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestRecommendationService_RecordInteraction(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	menu := seedCatalog(t, store)
	userID := uuid.New()

	t.Run("view increments popularity and publishes", func(t *testing.T) {
		publisher := new(MockInteractionPublisher)
		publisher.On("PublishInteraction", mock.Anything, mock.MatchedBy(func(in models.Interaction) bool {
			return in.UserID == userID && in.FoodID == menu.MiQuang.ID && in.Kind == models.InteractionView
		})).Return(nil).Once()

		service := newTestRecommendationService(store, publisher, nil, false)
		interaction, err := service.RecordInteraction(ctx, userID, &models.InteractionRequest{
			FoodID: menu.MiQuang.ID,
			Kind:   models.InteractionView,
		})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, interaction.ID)
		food, err := store.GetItem(ctx, menu.MiQuang.ID)
		require.NoError(t, err)
		assert.Equal(t, menu.MiQuang.ViewCount+1, food.ViewCount)
		publisher.AssertExpectations(t)
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		publisher := new(MockInteractionPublisher)
		publisher.On("PublishInteraction", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

		service := newTestRecommendationService(store, publisher, nil, false)
		interaction, err := service.RecordInteraction(ctx, userID, &models.InteractionRequest{
			FoodID: menu.Che.ID,
			Kind:   models.InteractionLike,
			Rating: intPtr(5),
		})
		require.NoError(t, err)
		assert.Equal(t, 5, *interaction.Rating)

		food, err := store.GetItem(ctx, menu.Che.ID)
		require.NoError(t, err)
		assert.Equal(t, menu.Che.ViewCount, food.ViewCount)
	})

	t.Run("unknown dish", func(t *testing.T) {
		service := newTestRecommendationService(store, nil, nil, false)
		_, err := service.RecordInteraction(ctx, userID, &models.InteractionRequest{
			FoodID: uuid.New(),
			Kind:   models.InteractionView,
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		service := newTestRecommendationService(store, nil, nil, false)

		_, err := service.RecordInteraction(ctx, userID, &models.InteractionRequest{FoodID: menu.Pho.ID, Kind: "order"})
		assert.ErrorIs(t, err, models.ErrValidation)

		_, err = service.RecordInteraction(ctx, userID, &models.InteractionRequest{
			FoodID: menu.Pho.ID,
			Kind:   models.InteractionLike,
			Rating: intPtr(6),
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestRecommendationService_History(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	menu := seedCatalog(t, store)
	userID := uuid.New()
	service := newTestRecommendationService(store, nil, nil, false)

	for _, req := range []models.InteractionRequest{
		{FoodID: menu.Pho.ID, Kind: models.InteractionView},
		{FoodID: menu.BunCha.ID, Kind: models.InteractionLike},
		{FoodID: menu.ComTam.ID, Kind: models.InteractionView},
	} {
		_, err := service.RecordInteraction(ctx, userID, &req)
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		history, err := service.History(ctx, userID, "", DefaultHistoryLimit)
		require.NoError(t, err)

		require.Equal(t, 3, history.Total)
		assert.Equal(t, menu.ComTam.ID, history.Interactions[0].FoodID)
		assert.Equal(t, menu.Pho.ID, history.Interactions[2].FoodID)
	})

	t.Run("filtered by kind", func(t *testing.T) {
		history, err := service.History(ctx, userID, models.InteractionLike, 10)
		require.NoError(t, err)

		require.Len(t, history.Interactions, 1)
		assert.Equal(t, menu.BunCha.ID, history.Interactions[0].FoodID)
	})

	t.Run("empty history is an empty list", func(t *testing.T) {
		history, err := service.History(ctx, uuid.New(), "", 10)
		require.NoError(t, err)

		assert.NotNil(t, history.Interactions)
		assert.Equal(t, 0, history.Total)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := service.History(ctx, userID, "", MaxHistoryLimit+1)
		assert.ErrorIs(t, err, models.ErrValidation)
		_, err = service.History(ctx, userID, "purchase", 10)
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestRecommendationService_CacheFailuresAreTolerated(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	menu := seedCatalog(t, store)

	// Nothing listens here, so every cache call fails.
	cache := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	defer cache.Close()

	service := newTestRecommendationService(store, nil, cache, false)

	response, err := service.RecommendByLocation(ctx, 10.78, 106.70, 5)
	require.NoError(t, err)
	assert.False(t, response.CacheHit)
	assert.Equal(t, "Dishes from Southern Vietnam", response.Message)
	assert.Equal(t, menu.ComTam.ID, response.Recommendations[0].ID)

	response, err = service.RecommendSimilar(ctx, menu.Pho.ID, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, response.Recommendations)

	response, err = service.RecommendByTaste(ctx, TasteQuery{Vegetarian: boolPtr(true)}, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, response.Total)
}

func TestRecommendationService_LocationRejectsBadCoordinatesBeforeCache(t *testing.T) {
	store := database.NewMemoryStore()
	seedCatalog(t, store)
	service := newTestRecommendationService(store, nil, nil, false)

	_, err := service.RecommendByLocation(context.Background(), 120, 106.7, 5)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRecommendationService_SimilarNotFound(t *testing.T) {
	store := database.NewMemoryStore()
	seedCatalog(t, store)
	service := newTestRecommendationService(store, nil, nil, false)

	_, err := service.RecommendSimilar(context.Background(), uuid.New(), 5)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTasteQuery_CacheKey(t *testing.T) {
	assert.Equal(t, ":::", TasteQuery{}.cacheKey())
	assert.Equal(t, "3:true::nam", TasteQuery{
		SpicyLevel: intPtr(3),
		PreferSoup: boolPtr(true),
		Region:     regionPtr(models.RegionSouth),
	}.cacheKey())
}
