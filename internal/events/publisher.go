package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/pkg/kafka"
)

const eventSource = "service-loyalty"

// Publisher publishes loyalty domain events as CloudEvents. Publishing
// happens after the store commit; failures are logged and never roll back
// committed state.
type Publisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewPublisher creates a Publisher over the given Kafka producer.
func NewPublisher(producer *kafka.Producer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload interface{}) {
	ce, err := kafka.NewCloudEvent(eventSource, eventType, payload)
	if err != nil {
		p.logger.Error("failed to build cloud event",
			zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := p.producer.PublishEvent(ctx, TopicLoyaltyEvents, ce); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("type", eventType), zap.Error(err))
	}
}

// StampAwarded publishes a LoyaltyStampAwarded event.
func (p *Publisher) StampAwarded(ctx context.Context, evt StampAwardedEvent) {
	p.publish(ctx, LoyaltyStampAwarded, evt)
}

// CycleClosed publishes a LoyaltyCycleClosed event.
func (p *Publisher) CycleClosed(ctx context.Context, evt CycleClosedEvent) {
	p.publish(ctx, LoyaltyCycleClosed, evt)
}

// RewardRedeemed publishes a LoyaltyRewardRedeemed event.
func (p *Publisher) RewardRedeemed(ctx context.Context, evt RewardRedeemedEvent) {
	p.publish(ctx, LoyaltyRewardRedeemed, evt)
}

// MemberActivated publishes a LoyaltyMemberActivated event.
func (p *Publisher) MemberActivated(ctx context.Context, evt MemberActivatedEvent) {
	p.publish(ctx, LoyaltyMemberActivated, evt)
}
