package outbox

import (
	"context"
	"fmt"

	"github.com/vaidashi/order-admin/internal/models"
	apperrors "github.com/vaidashi/order-admin/pkg/errors"
	"github.com/vaidashi/order-admin/pkg/logger"
	"github.com/vaidashi/order-admin/pkg/retry"
)

// Publisher sends a keyed payload to a topic
type Publisher interface {
	SendMessage(ctx context.Context, topic string, key string, value []byte) error
}

// KafkaHandler publishes outbox messages to Kafka, keyed by aggregate id so
// events for one setting stay ordered within a partition
type KafkaHandler struct {
	publisher   Publisher
	topic       string
	retryConfig *retry.RetryConfig
	logger      logger.Logger
}

// NewKafkaHandler creates a new KafkaHandler. Unless retryConfig says
// otherwise, only errors marked retryable are published again.
func NewKafkaHandler(publisher Publisher, topic string, retryConfig *retry.RetryConfig, logger logger.Logger) *KafkaHandler {
	if retryConfig == nil {
		retryConfig = &retry.RetryConfig{
			MaxAttempts:     3,
			BackoffStrategy: retry.NewDefaultExponentialBackoff(),
			Logger:          logger,
		}
	}

	if retryConfig.ShouldRetry == nil && len(retryConfig.RetryableErrors) == 0 {
		cfg := *retryConfig
		cfg.ShouldRetry = apperrors.IsRetryable
		retryConfig = &cfg
	}

	return &KafkaHandler{
		publisher:   publisher,
		topic:       topic,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// HandleMessage handles an outbox message by publishing it to Kafka
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	h.logger.Debug("Publishing message to Kafka",
		"topic", h.topic,
		"messageID", message.ID,
		"aggregateID", message.AggregateID,
		"eventType", message.EventType)

	err := retry.Retry(ctx, func() error {
		return h.publisher.SendMessage(ctx, h.topic, message.AggregateID, message.Payload)
	}, h.retryConfig)

	if err != nil {
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	return nil
}
