package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/pkg/models"
)

type RateLimiter interface {
	IsAllowed(ctx context.Context, identity string, authenticated bool) (bool, *models.RateLimitInfo, error)
}

// RateLimit keys authenticated callers by user id and anonymous callers by client IP.
// It must run after OptionalAuth.
func RateLimit(limiter RateLimiter, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.ClientIP()
		userID, authenticated := GetUserID(c)
		if authenticated {
			identity = userID.String()
		}

		allowed, info, err := limiter.IsAllowed(c.Request.Context(), identity, authenticated)
		if err != nil {
			logger.WithError(err).Error("Failed to check rate limit")
			// Fail open while Redis is unavailable.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime, 10))

		if !allowed {
			logger.WithFields(logrus.Fields{
				"identity":      identity,
				"authenticated": authenticated,
				"limit":         info.Limit,
			}).Warn("Rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Rate limit exceeded. Please try again later.",
				},
				"rate_limit": info,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
