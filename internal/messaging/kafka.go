package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/pkg/models"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// ErrNonRetryable marks handler errors that no retry can fix. Events failing
// with it go to the dead-letter topic without backoff.
var ErrNonRetryable = errors.New("non-retryable event")

// EventHandler processes one interaction event. A returned error triggers a
// retry unless it wraps ErrNonRetryable.
type EventHandler func(ctx context.Context, event models.InteractionEvent) error

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageBus publishes interaction events and feeds them to consumers,
// parking messages that keep failing on a dead-letter topic.
type MessageBus struct {
	writer     messageWriter
	readerMu   sync.Mutex
	reader     messageReader
	dlqWriter  messageWriter
	readerCfg  kafka.ReaderConfig
	topic      string
	dlqTopic   string
	maxRetries int
	baseDelay  time.Duration
	logger     *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if !cfg.Kafka.Enabled() {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}

	topics := cfg.Kafka.Topics

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topics.Interactions,
		Balancer:     &kafka.Hash{}, // keyed by user so a user's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topics.InteractionsDLQ,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &MessageBus{
		writer:    writer,
		dlqWriter: dlqWriter,
		readerCfg: kafka.ReaderConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          topics.Interactions,
			GroupID:        cfg.Kafka.ConsumerGroup,
			MinBytes:       1,
			MaxBytes:       10e6, // 10MB
			CommitInterval: 0,
			StartOffset:    kafka.FirstOffset,
		},
		topic:      topics.Interactions,
		dlqTopic:   topics.InteractionsDLQ,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		logger:     logger,
	}, nil
}

// PublishInteraction emits a recorded interaction.
func (mb *MessageBus) PublishInteraction(ctx context.Context, interaction models.Interaction) error {
	event := models.InteractionEvent{
		Interaction: interaction,
		PublishedAt: time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(interaction.UserID.String()),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "interaction_id", Value: []byte(interaction.ID.String())},
			{Key: "interaction_type", Value: []byte(interaction.Kind)},
			{Key: "timestamp", Value: []byte(event.PublishedAt.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.writer.WriteMessages(ctx, message); err != nil {
		mb.logger.WithError(err).WithField("interaction_id", interaction.ID).Error("Failed to publish interaction event")
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"interaction_id":   interaction.ID,
		"interaction_type": interaction.Kind,
		"topic":            mb.topic,
	}).Debug("Interaction event published")

	return nil
}

// ConsumeInteractions reads events until ctx is cancelled. Each message is
// committed once it is handled or parked on the dead-letter topic.
func (mb *MessageBus) ConsumeInteractions(ctx context.Context, handler EventHandler) error {
	reader := mb.consumer()

	for {
		message, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).Error("Failed to read message from Kafka")
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		var event models.InteractionEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			mb.logger.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal interaction event")
			if dlqErr := mb.sendToDLQ(ctx, message.Value, "", err); dlqErr != nil {
				mb.logger.WithError(dlqErr).Error("Failed to send message to DLQ")
			}
		} else if err := mb.processWithRetry(ctx, event, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).WithField("interaction_id", event.Interaction.ID).Error("Failed to process event")
			if dlqErr := mb.sendToDLQ(ctx, message.Value, event.Interaction.ID.String(), err); dlqErr != nil {
				mb.logger.WithError(dlqErr).Error("Failed to send message to DLQ")
			}
		}

		if err := reader.CommitMessages(ctx, message); err != nil {
			mb.logger.WithError(err).WithField("offset", message.Offset).Warn("Failed to commit message")
		}
	}
}

// consumer returns the group reader, creating it on first use.
func (mb *MessageBus) consumer() messageReader {
	mb.readerMu.Lock()
	defer mb.readerMu.Unlock()
	if mb.reader == nil {
		mb.reader = kafka.NewReader(mb.readerCfg)
	}
	return mb.reader
}

func (mb *MessageBus) currentReader() messageReader {
	mb.readerMu.Lock()
	defer mb.readerMu.Unlock()
	return mb.reader
}

func (mb *MessageBus) processWithRetry(ctx context.Context, event models.InteractionEvent, handler EventHandler) error {
	for attempt := 0; attempt <= mb.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := mb.baseDelay * time.Duration(1<<uint(attempt-1))
			mb.logger.WithFields(logrus.Fields{
				"interaction_id": event.Interaction.ID,
				"attempt":        attempt,
				"delay":          delay,
			}).Info("Retrying event processing")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		event.RetryCount = attempt
		err := handler(ctx, event)
		if err == nil {
			return nil
		}

		mb.logger.WithError(err).WithFields(logrus.Fields{
			"interaction_id": event.Interaction.ID,
			"attempt":        attempt,
		}).Warn("Event processing failed")

		if errors.Is(err, ErrNonRetryable) {
			return err
		}
		if attempt == mb.maxRetries {
			return fmt.Errorf("max retries exceeded: %w", err)
		}
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, payload []byte, key string, originalError error) error {
	dlqMessage := map[string]interface{}{
		"original_message": json.RawMessage(payload),
		"error":            originalError.Error(),
		"dlq_timestamp":    time.Now().UTC(),
	}
	if !json.Valid(payload) {
		dlqMessage["original_message"] = string(payload)
	}

	dlqBytes, err := json.Marshal(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: dlqBytes,
		Headers: []kafka.Header{
			{Key: "original_topic", Value: []byte(mb.topic)},
			{Key: "error", Value: []byte(originalError.Error())},
		},
	}

	if err := mb.dlqWriter.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"interaction_id": key,
		"topic":          mb.dlqTopic,
		"error":          originalError.Error(),
	}).Warn("Message sent to DLQ")

	return nil
}

func (mb *MessageBus) Close() error {
	var errs []error

	if err := mb.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}

	if reader := mb.currentReader(); reader != nil {
		if err := reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
		}
	}

	if err := mb.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	return errors.Join(errs...)
}

// GetMetrics returns consumer statistics for health output.
func (mb *MessageBus) GetMetrics() map[string]interface{} {
	reader, ok := mb.currentReader().(*kafka.Reader)
	if !ok {
		return map[string]interface{}{"consumer": "inactive"}
	}
	stats := reader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"bytes_read":      stats.Bytes,
		"rebalances":      stats.Rebalances,
		"timeouts":        stats.Timeouts,
		"errors":          stats.Errors,
	}
}
