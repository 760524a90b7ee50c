package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/services"
	"github.com/temcen/dishrec/pkg/models"
)

const (
	userIDKey = "user_id"
	roleKey   = "user_role"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error)
}

var _ TokenValidator = (*services.AuthService)(nil)

// OptionalAuth identifies the caller when a bearer token is present and lets
// anonymous requests through. A token that is present but invalid is rejected.
func OptionalAuth(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		if !authenticate(c, validator, authHeader, logger) {
			return
		}
		c.Next()
	}
}

// RequireAuth rejects requests that OptionalAuth did not identify.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "MISSING_AUTHORIZATION",
					"message": "Authorization header is required",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, validator TokenValidator, authHeader string, logger *logrus.Logger) bool {
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "INVALID_AUTHORIZATION_FORMAT",
				"message": "Authorization header must be in format 'Bearer <token>'",
			},
		})
		c.Abort()
		return false
	}

	claims, err := validator.ValidateToken(c.Request.Context(), tokenParts[1])
	if err != nil {
		logger.WithError(err).Warn("Invalid JWT token")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "INVALID_TOKEN",
				"message": "Invalid or expired token",
			},
		})
		c.Abort()
		return false
	}

	c.Set(userIDKey, claims.UserID)
	c.Set(roleKey, claims.Role)
	return true
}

// GetUserID returns the authenticated caller, if any.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// SetUserID marks the request as made by userID.
func SetUserID(c *gin.Context, userID uuid.UUID) {
	c.Set(userIDKey, userID)
}
