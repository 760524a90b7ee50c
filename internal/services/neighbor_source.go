package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/temcen/dishrec/internal/config"
)

// BreakerNeighborSource asks the graph mirror for neighbors and falls back to
// the relational interaction log when the graph fails or the breaker is open.
type BreakerNeighborSource struct {
	primary  NeighborSource
	fallback NeighborSource
	cb       *gobreaker.CircuitBreaker[[]uuid.UUID]
	metrics  *EngineMetrics
	logger   *logrus.Logger
}

func NewBreakerNeighborSource(
	primary, fallback NeighborSource,
	cfg config.BreakerConfig,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *BreakerNeighborSource {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker[[]uuid.UUID](gobreaker.Settings{
		Name:        "neighbor-graph",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		// A cancelled request says nothing about graph health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerNeighborSource{
		primary:  primary,
		fallback: fallback,
		cb:       cb,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *BreakerNeighborSource) UsersWhoInteractedWith(ctx context.Context, itemIDs []uuid.UUID, excludeUserID uuid.UUID, limit int) ([]uuid.UUID, error) {
	users, err := s.cb.Execute(func() ([]uuid.UUID, error) {
		return s.primary.UsersWhoInteractedWith(ctx, itemIDs, excludeUserID, limit)
	})
	if err == nil {
		return users, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.WithError(err).Debug("Graph neighbor lookup rejected, using fallback")
	} else {
		s.logger.WithError(err).Warn("Graph neighbor lookup failed, using fallback")
	}
	s.metrics.ObserveFallback()

	return s.fallback.UsersWhoInteractedWith(ctx, itemIDs, excludeUserID, limit)
}

// State reports the breaker state for health output.
func (s *BreakerNeighborSource) State() string {
	return s.cb.State().String()
}
