package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/middleware"
	"github.com/temcen/dishrec/internal/services"
	"github.com/temcen/dishrec/pkg/models"
)

// Default result counts when the caller does not pass a limit.
const (
	defaultRecommendLimit = 10
	defaultSimilarLimit   = 5
)

type RecommendationHandler struct {
	service   services.RecommendationServiceInterface
	logger    *logrus.Logger
	validator *validator.Validate
}

func NewRecommendationHandler(service services.RecommendationServiceInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service:   service,
		logger:    logger,
		validator: validator.New(),
	}
}

// Recommend serves POST /recommendations for anonymous and signed-in callers.
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	req := models.RecommendationRequest{Limit: defaultRecommendLimit}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.badRequest(c, "VALIDATION_FAILED", "Request validation failed", err)
		return
	}

	var geo *models.GeoPoint
	if req.Latitude != nil && req.Longitude != nil {
		geo = &models.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	var userID *uuid.UUID
	if id, ok := middleware.GetUserID(c); ok {
		userID = &id
	}

	response, err := h.service.Recommend(c.Request.Context(), userID, req.Limit, geo)
	if err != nil {
		h.serviceError(c, err, "USER_NOT_FOUND", "RECOMMENDATION_FAILED")
		return
	}
	c.JSON(http.StatusOK, response)
}

// Personalized serves GET /recommendations/personalized. Requires auth.
func (h *RecommendationHandler) Personalized(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	limit, ok := h.intQuery(c, "limit", defaultRecommendLimit)
	if !ok {
		return
	}

	response, err := h.service.Recommend(c.Request.Context(), &userID, limit, nil)
	if err != nil {
		h.serviceError(c, err, "USER_NOT_FOUND", "RECOMMENDATION_FAILED")
		return
	}
	c.JSON(http.StatusOK, response)
}

// Nearby serves GET /recommendations/nearby?latitude=&longitude=.
func (h *RecommendationHandler) Nearby(c *gin.Context) {
	lat, ok := h.floatQuery(c, "latitude")
	if !ok {
		return
	}
	lon, ok := h.floatQuery(c, "longitude")
	if !ok {
		return
	}
	limit, ok := h.intQuery(c, "limit", defaultRecommendLimit)
	if !ok {
		return
	}

	response, err := h.service.RecommendByLocation(c.Request.Context(), lat, lon, limit)
	if err != nil {
		h.serviceError(c, err, "NOT_FOUND", "RECOMMENDATION_FAILED")
		return
	}
	c.JSON(http.StatusOK, response)
}

// ByTaste serves GET /recommendations/by-taste. Every filter is optional.
func (h *RecommendationHandler) ByTaste(c *gin.Context) {
	var query services.TasteQuery

	if raw := c.Query("spicy_level"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil {
			h.invalidParameter(c, "spicy_level", raw)
			return
		}
		query.SpicyLevel = &level
	}
	for name, dest := range map[string]**bool{
		"prefer_soup":   &query.PreferSoup,
		"is_vegetarian": &query.Vegetarian,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			h.invalidParameter(c, name, raw)
			return
		}
		*dest = &value
	}
	if raw := c.Query("region"); raw != "" {
		region := models.Region(raw)
		query.Region = &region
	}

	limit, ok := h.intQuery(c, "limit", defaultRecommendLimit)
	if !ok {
		return
	}

	response, err := h.service.RecommendByTaste(c.Request.Context(), query, limit)
	if err != nil {
		h.serviceError(c, err, "NOT_FOUND", "RECOMMENDATION_FAILED")
		return
	}
	c.JSON(http.StatusOK, response)
}

// Similar serves GET /recommendations/similar/:foodId.
func (h *RecommendationHandler) Similar(c *gin.Context) {
	foodID, err := uuid.Parse(c.Param("foodId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_FOOD_ID",
				"message": "Invalid food ID format",
			},
		})
		return
	}

	limit, ok := h.intQuery(c, "limit", defaultSimilarLimit)
	if !ok {
		return
	}

	response, err := h.service.RecommendSimilar(c.Request.Context(), foodID, limit)
	if err != nil {
		h.serviceError(c, err, "FOOD_NOT_FOUND", "RECOMMENDATION_FAILED")
		return
	}
	c.JSON(http.StatusOK, response)
}

// RecordInteraction serves POST /recommendations/interaction. Requires auth.
func (h *RecommendationHandler) RecordInteraction(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req models.InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.badRequest(c, "VALIDATION_FAILED", "Request validation failed", err)
		return
	}

	interaction, err := h.service.RecordInteraction(c.Request.Context(), userID, &req)
	if err != nil {
		h.serviceError(c, err, "FOOD_NOT_FOUND", "INTERACTION_FAILED")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    interaction,
		"message": "Interaction recorded successfully",
	})
}

// History serves GET /recommendations/history. Requires auth.
func (h *RecommendationHandler) History(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	limit, ok := h.intQuery(c, "limit", services.DefaultHistoryLimit)
	if !ok {
		return
	}
	kind := models.InteractionKind(c.Query("interaction_type"))

	history, err := h.service.History(c.Request.Context(), userID, kind, limit)
	if err != nil {
		h.serviceError(c, err, "NOT_FOUND", "HISTORY_FAILED")
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *RecommendationHandler) intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		h.invalidParameter(c, name, raw)
		return 0, false
	}
	return value, true
}

func (h *RecommendationHandler) floatQuery(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "MISSING_PARAMETER",
				"message": fmt.Sprintf("Query parameter %q is required", name),
			},
		})
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		h.invalidParameter(c, name, raw)
		return 0, false
	}
	return value, true
}

func (h *RecommendationHandler) invalidParameter(c *gin.Context, name, value string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":    "INVALID_PARAMETER",
			"message": fmt.Sprintf("Invalid value %q for %s", value, name),
		},
	})
}

func (h *RecommendationHandler) badRequest(c *gin.Context, code, message string, err error) {
	h.logger.WithError(err).Debug(message)
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": err.Error(),
		},
	})
}

// serviceError maps engine sentinels onto HTTP statuses.
func (h *RecommendationHandler) serviceError(c *gin.Context, err error, notFoundCode, failureCode string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    notFoundCode,
				"message": err.Error(),
			},
		})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Recommendation request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    failureCode,
				"message": "Failed to process request",
			},
		})
	}
}
