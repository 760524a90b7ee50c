package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/pkg/models"
)

// RateLimitService applies a sliding-window request limit per caller using
// a Redis sorted set. Without Redis every request is allowed.
type RateLimitService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
}

func NewRateLimitService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
	}
}

// CheckLimit counts this request against identity's window. Authenticated
// callers are keyed by user id, anonymous ones by client IP.
func (s *RateLimitService) CheckLimit(ctx context.Context, identity string, authenticated bool) (*models.RateLimitInfo, error) {
	limit := s.limitFor(authenticated)
	window := s.config.Auth.RateLimit.Window
	now := time.Now()

	permissive := &models.RateLimitInfo{
		Limit:     limit,
		Remaining: limit,
		ResetTime: now.Add(window).Unix(),
	}
	if s.redisClient == nil {
		return permissive, nil
	}

	kind := "anon"
	if authenticated {
		kind = "user"
	}
	key := fmt.Sprintf("rate_limit:%s:%s", kind, identity)
	windowStart := now.Add(-window)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipe := s.redisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open when Redis is unavailable
		s.logger.WithError(err).Error("Failed to execute rate limit pipeline")
		return permissive, nil
	}

	remaining := limit - int(countCmd.Val())
	if remaining < 0 {
		remaining = 0
	}

	return &models.RateLimitInfo{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: now.Add(window).Unix(),
	}, nil
}

// IsAllowed reports whether the request fits in the caller's window.
func (s *RateLimitService) IsAllowed(ctx context.Context, identity string, authenticated bool) (bool, *models.RateLimitInfo, error) {
	info, err := s.CheckLimit(ctx, identity, authenticated)
	if err != nil {
		return false, nil, err
	}
	return info.Remaining > 0, info, nil
}

func (s *RateLimitService) limitFor(authenticated bool) int {
	if authenticated {
		return s.config.Auth.RateLimit.Authenticated
	}
	return s.config.Auth.RateLimit.Anonymous
}
