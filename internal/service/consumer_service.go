package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-tutorchat-be/internal/dto"
	"ai-tutorchat-be/internal/pkg/logger"
	"ai-tutorchat-be/pkg/events"
	pktNats "ai-tutorchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the in-process event channel and relays to NATS.
// The request path publishes to the channel only, so a slow or absent broker
// never adds latency to a learner's turn.
type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishSessionEventMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "failed to unmarshal event message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if cs.eventPublisher == nil {
		// No broker configured. Events are best-effort.
		cs.logger.Debug("ConsumerService", "no event broker, dropping event", map[string]interface{}{
			"event_type": payload.EventType,
		})
		msg.Ack()
		return
	}

	event := events.BaseEvent{
		Type:       payload.EventType,
		Data:       payload.Payload,
		OccurredAt: time.Now(),
	}

	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cs.eventPublisher.Publish(pubCtx, event); err != nil {
		cs.logger.Warn("ConsumerService", "failed to relay event to NATS", map[string]interface{}{
			"event_type": payload.EventType,
			"error":      err.Error(),
		})
		msg.Nack() // Retry
		return
	}

	msg.Ack()
}
