package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/messaging"
	"github.com/temcen/dishrec/pkg/models"
)

// GraphMirror receives interactions to keep the neighbor graph current.
type GraphMirror interface {
	MirrorInteraction(ctx context.Context, interaction models.Interaction) error
}

// EventConsumer delivers interaction events to a handler until ctx ends.
type EventConsumer interface {
	ConsumeInteractions(ctx context.Context, handler messaging.EventHandler) error
}

// GraphSyncWorker copies published interactions into the graph mirror.
type GraphSyncWorker struct {
	consumer EventConsumer
	mirror   GraphMirror
	logger   *logrus.Logger
}

func NewGraphSyncWorker(consumer EventConsumer, mirror GraphMirror, logger *logrus.Logger) *GraphSyncWorker {
	return &GraphSyncWorker{
		consumer: consumer,
		mirror:   mirror,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. Cancellation is a clean stop.
func (w *GraphSyncWorker) Run(ctx context.Context) error {
	w.logger.Info("Graph sync worker started")

	err := w.consumer.ConsumeInteractions(ctx, w.HandleEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("graph sync stopped: %w", err)
	}

	w.logger.Info("Graph sync worker stopped")
	return nil
}

func (w *GraphSyncWorker) HandleEvent(ctx context.Context, event models.InteractionEvent) error {
	interaction := event.Interaction
	if interaction.ID == uuid.Nil || interaction.UserID == uuid.Nil || interaction.FoodID == uuid.Nil {
		return fmt.Errorf("%w: malformed interaction event", messaging.ErrNonRetryable)
	}

	if err := w.mirror.MirrorInteraction(ctx, interaction); err != nil {
		return err
	}

	w.logger.WithFields(logrus.Fields{
		"interaction_id": interaction.ID,
		"retry_count":    event.RetryCount,
	}).Debug("Interaction synced to graph")
	return nil
}
