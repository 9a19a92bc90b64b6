package events

import (
	"context"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/pkg/kafka"
)

// TransactionHandler is the application entrypoint POS events feed into.
type TransactionHandler interface {
	HandleTransactionRecorded(ctx context.Context, evt TransactionRecordedEvent) error
}

// POSEventConsumer listens to the POS transaction topic and awards stamps for
// qualifying purchases.
type POSEventConsumer struct {
	consumer *kafka.Consumer
	handler  TransactionHandler
	logger   *zap.Logger
}

// NewPOSEventConsumer creates a consumer for POS transaction events.
func NewPOSEventConsumer(
	brokers []string,
	groupID string,
	handler TransactionHandler,
	logger *zap.Logger,
) *POSEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicPOSEvents, logger)
	return &POSEventConsumer{
		consumer: consumer,
		handler:  handler,
		logger:   logger,
	}
}

// Start begins consuming POS events. It blocks until the context is cancelled.
func (c *POSEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *POSEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from POS topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	c.logger.Info("received POS event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, POSTransactionRecorded):
		return c.handleTransactionRecorded(ctx, cloudEvent)

	default:
		c.logger.Debug("ignoring unhandled POS event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *POSEventConsumer) handleTransactionRecorded(ctx context.Context, ce kafka.CloudEvent) error {
	var event TransactionRecordedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse TransactionRecordedEvent data", zap.Error(err))
		return err
	}

	return c.handler.HandleTransactionRecorded(ctx, event)
}

// Close closes the underlying Kafka consumer.
func (c *POSEventConsumer) Close() error {
	return c.consumer.Close()
}
