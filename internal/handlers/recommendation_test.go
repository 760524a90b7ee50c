package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/dishrec/internal/middleware"
	"github.com/temcen/dishrec/internal/services"
	"github.com/temcen/dishrec/pkg/models"
)

type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) Recommend(ctx context.Context, userID *uuid.UUID, limit int, geo *models.GeoPoint) (*models.RecommendationResponse, error) {
	args := m.Called(ctx, userID, limit, geo)
	return responseArg(args)
}

func (m *MockRecommendationService) RecommendByLocation(ctx context.Context, lat, lon float64, limit int) (*models.RecommendationResponse, error) {
	args := m.Called(ctx, lat, lon, limit)
	return responseArg(args)
}

func (m *MockRecommendationService) RecommendSimilar(ctx context.Context, foodID uuid.UUID, limit int) (*models.RecommendationResponse, error) {
	args := m.Called(ctx, foodID, limit)
	return responseArg(args)
}

func (m *MockRecommendationService) RecommendByTaste(ctx context.Context, query services.TasteQuery, limit int) (*models.RecommendationResponse, error) {
	args := m.Called(ctx, query, limit)
	return responseArg(args)
}

func (m *MockRecommendationService) RecordInteraction(ctx context.Context, userID uuid.UUID, req *models.InteractionRequest) (*models.Interaction, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Interaction), args.Error(1)
}

func (m *MockRecommendationService) History(ctx context.Context, userID uuid.UUID, kind models.InteractionKind, limit int) (*models.UserHistoryResponse, error) {
	args := m.Called(ctx, userID, kind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserHistoryResponse), args.Error(1)
}

func responseArg(args mock.Arguments) (*models.RecommendationResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResponse), args.Error(1)
}

func sampleResponse() *models.RecommendationResponse {
	return &models.RecommendationResponse{
		Success: true,
		Recommendations: []models.RecommendedFood{{
			ID:       uuid.New(),
			Name:     "Pho bo",
			Region:   models.RegionNorth,
			FoodType: models.FoodTypeSoup,
			Score:    0.9,
			Strategy: models.StrategyContentBased,
			Reason:   "matches fits spice preference",
		}},
		Total:       1,
		GeneratedAt: time.Now().UTC(),
	}
}

// newTestRouter mounts the handler the way the app does, with a fake
// identity standing in for bearer auth.
func newTestRouter(service services.RecommendationServiceInterface, userID *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := NewRecommendationHandler(service, logger)
	router := gin.New()
	group := router.Group("/api/v1/recommendations", func(c *gin.Context) {
		if userID != nil {
			middleware.SetUserID(c, *userID)
		}
		c.Next()
	})
	authed := group.Group("", middleware.RequireAuth())

	group.POST("", handler.Recommend)
	group.GET("/nearby", handler.Nearby)
	group.GET("/by-taste", handler.ByTaste)
	group.GET("/similar/:foodId", handler.Similar)
	authed.GET("/personalized", handler.Personalized)
	authed.POST("/interaction", handler.RecordInteraction)
	authed.GET("/history", handler.History)
	return router
}

func perform(router *gin.Engine, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]["code"].(string)
}

func TestRecommendationHandler_Recommend(t *testing.T) {
	userID := uuid.New()
	lat, lon := 21.03, 105.85

	tests := []struct {
		name           string
		userID         *uuid.UUID
		body           interface{}
		mockSetup      func(*MockRecommendationService)
		expectedStatus int
		expectedError  string
	}{
		{
			name:   "anonymous with default limit",
			body:   map[string]interface{}{},
			userID: nil,
			mockSetup: func(m *MockRecommendationService) {
				m.On("Recommend", mock.Anything, (*uuid.UUID)(nil), 10, (*models.GeoPoint)(nil)).Return(sampleResponse(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "signed in with coordinates",
			userID: &userID,
			body:   models.RecommendationRequest{Limit: 3, Latitude: &lat, Longitude: &lon},
			mockSetup: func(m *MockRecommendationService) {
				m.On("Recommend", mock.Anything, &userID, 3, &models.GeoPoint{Latitude: lat, Longitude: lon}).Return(sampleResponse(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "limit above maximum",
			body:           map[string]interface{}{"limit": 51},
			mockSetup:      func(m *MockRecommendationService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_FAILED",
		},
		{
			name:           "malformed body",
			body:           "not an object",
			mockSetup:      func(m *MockRecommendationService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_REQUEST",
		},
		{
			name:   "token for a deleted user",
			userID: &userID,
			body:   map[string]interface{}{"limit": 5},
			mockSetup: func(m *MockRecommendationService) {
				m.On("Recommend", mock.Anything, &userID, 5, (*models.GeoPoint)(nil)).
					Return(nil, fmt.Errorf("failed to load requester: %w", models.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "USER_NOT_FOUND",
		},
		{
			name: "store failure",
			body: map[string]interface{}{"limit": 5},
			mockSetup: func(m *MockRecommendationService) {
				m.On("Recommend", mock.Anything, (*uuid.UUID)(nil), 5, (*models.GeoPoint)(nil)).Return(nil, errors.New("connection reset"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "RECOMMENDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockRecommendationService)
			tt.mockSetup(service)

			w := perform(newTestRouter(service, tt.userID), http.MethodPost, "/api/v1/recommendations", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, w))
			} else {
				var response models.RecommendationResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.True(t, response.Success)
				assert.Equal(t, models.StrategyContentBased, response.Recommendations[0].Strategy)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestRecommendationHandler_QueryEndpoints(t *testing.T) {
	foodID := uuid.New()
	userID := uuid.New()
	spicy := 2
	soup := true

	tests := []struct {
		name           string
		target         string
		userID         *uuid.UUID
		mockSetup      func(*MockRecommendationService)
		expectedStatus int
		expectedError  string
	}{
		{
			name:   "nearby",
			target: "/api/v1/recommendations/nearby?latitude=10.77&longitude=106.70&limit=4",
			mockSetup: func(m *MockRecommendationService) {
				m.On("RecommendByLocation", mock.Anything, 10.77, 106.70, 4).Return(sampleResponse(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "nearby without latitude",
			target:         "/api/v1/recommendations/nearby?longitude=106.70",
			mockSetup:      func(m *MockRecommendationService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_PARAMETER",
		},
		{
			name:   "nearby out of range",
			target: "/api/v1/recommendations/nearby?latitude=95&longitude=106.70",
			mockSetup: func(m *MockRecommendationService) {
				m.On("RecommendByLocation", mock.Anything, 95.0, 106.70, 10).
					Return(nil, fmt.Errorf("%w: latitude must be between -90 and 90", models.ErrValidation))
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_FAILED",
		},
		{
			name:   "by taste",
			target: "/api/v1/recommendations/by-taste?spicy_level=2&prefer_soup=true&region=bac",
			mockSetup: func(m *MockRecommendationService) {
				region := models.RegionNorth
				m.On("RecommendByTaste", mock.Anything, services.TasteQuery{
					SpicyLevel: &spicy,
					PreferSoup: &soup,
					Region:     &region,
				}, 10).Return(sampleResponse(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "by taste with malformed flag",
			target:         "/api/v1/recommendations/by-taste?is_vegetarian=maybe",
			mockSetup:      func(m *MockRecommendationService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_PARAMETER",
		},
		{
			name:   "similar with default limit",
			target: "/api/v1/recommendations/similar/" + foodID.String(),
			mockSetup: func(m *MockRecommendationService) {
				m.On("RecommendSimilar", mock.Anything, foodID, 5).Return(sampleResponse(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "similar to unknown dish",
			target: "/api/v1/recommendations/similar/" + foodID.String() + "?limit=3",
			mockSetup: func(m *MockRecommendationService) {
				m.On("RecommendSimilar", mock.Anything, foodID, 3).Return(nil, fmt.Errorf("food %s: %w", foodID, models.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "FOOD_NOT_FOUND",
		},
		{
			name:           "similar with malformed id",
			target:         "/api/v1/recommendations/similar/pho-bo",
			mockSetup:      func(m *MockRecommendationService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_FOOD_ID",
		},
		{
			name:   "personalized",
			target: "/api/v1/recommendations/personalized?limit=7",
			userID: &userID,
			mockSetup: func(m *MockRecommendationService) {
				m.On("Recommend", mock.Anything, &userID, 7, (*models.GeoPoint)(nil)).Return(sampleResponse(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "personalized requires a token",
			target:         "/api/v1/recommendations/personalized",
			mockSetup:      func(m *MockRecommendationService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "MISSING_AUTHORIZATION",
		},
		{
			name:   "history filtered by kind",
			target: "/api/v1/recommendations/history?interaction_type=like&limit=20",
			userID: &userID,
			mockSetup: func(m *MockRecommendationService) {
				m.On("History", mock.Anything, userID, models.InteractionLike, 20).
					Return(&models.UserHistoryResponse{Interactions: []models.Interaction{}}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "history with malformed limit",
			target:         "/api/v1/recommendations/history?limit=all",
			userID:         &userID,
			mockSetup:      func(m *MockRecommendationService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_PARAMETER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockRecommendationService)
			tt.mockSetup(service)

			w := perform(newTestRouter(service, tt.userID), http.MethodGet, tt.target, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, w))
			}
			service.AssertExpectations(t)
		})
	}
}

func TestRecommendationHandler_RecordInteraction(t *testing.T) {
	userID := uuid.New()
	foodID := uuid.New()

	t.Run("records and returns the interaction", func(t *testing.T) {
		service := new(MockRecommendationService)
		service.On("RecordInteraction", mock.Anything, userID, &models.InteractionRequest{
			FoodID: foodID,
			Kind:   models.InteractionView,
		}).Return(&models.Interaction{ID: uuid.New(), UserID: userID, FoodID: foodID, Kind: models.InteractionView}, nil)

		w := perform(newTestRouter(service, &userID), http.MethodPost, "/api/v1/recommendations/interaction",
			map[string]interface{}{"food_id": foodID, "interaction_type": "view"})

		assert.Equal(t, http.StatusCreated, w.Code)
		var body struct {
			Success bool               `json:"success"`
			Data    models.Interaction `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, foodID, body.Data.FoodID)
		service.AssertExpectations(t)
	})

	t.Run("unknown dish", func(t *testing.T) {
		service := new(MockRecommendationService)
		service.On("RecordInteraction", mock.Anything, userID, mock.Anything).
			Return(nil, fmt.Errorf("food %s: %w", foodID, models.ErrNotFound))

		w := perform(newTestRouter(service, &userID), http.MethodPost, "/api/v1/recommendations/interaction",
			map[string]interface{}{"food_id": foodID, "interaction_type": "like"})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "FOOD_NOT_FOUND", errorCode(t, w))
	})

	t.Run("rating out of range", func(t *testing.T) {
		service := new(MockRecommendationService)

		w := perform(newTestRouter(service, &userID), http.MethodPost, "/api/v1/recommendations/interaction",
			map[string]interface{}{"food_id": foodID, "interaction_type": "like", "rating": 9})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
		service.AssertNotCalled(t, "RecordInteraction", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("anonymous callers are rejected", func(t *testing.T) {
		service := new(MockRecommendationService)

		w := perform(newTestRouter(service, nil), http.MethodPost, "/api/v1/recommendations/interaction",
			map[string]interface{}{"food_id": foodID, "interaction_type": "like"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
