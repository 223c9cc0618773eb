package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/strokecare/platform/pkg/common/logger"
	"github.com/strokecare/platform/pkg/common/models"
)

const maxHandlerAttempts = 5

var retryBackoff = 2 * time.Second

type Consumer struct {
	reader *kafka.Reader
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader}
}

// Consume feeds events to handler until ctx is cancelled. A failing event
// is retried with a fixed backoff and committed after the last attempt so
// one bad message cannot stall the partition.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).Error("Failed to unmarshal event")
			c.commit(ctx, message)
			continue
		}

		if err := handleWithRetry(ctx, handler, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"event_id": event.ID,
				"offset":   message.Offset,
			}).Error("Giving up on event")
		}
		c.commit(ctx, message)
	}
}

func handleWithRetry(ctx context.Context, handler EventHandler, event models.Event) error {
	var err error
	for attempt := 1; attempt <= maxHandlerAttempts; attempt++ {
		if err = handler(ctx, event); err == nil {
			return nil
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"attempt":  attempt,
		}).Warn("Failed to process event")
		if attempt == maxHandlerAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	return err
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
