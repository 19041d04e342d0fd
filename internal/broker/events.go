package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"trade-service/internal/models"
	"trade-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing trade domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOfferCreated publishes an OfferCreated event
func (ep *EventPublisher) PublishOfferCreated(ctx context.Context, event *models.OfferCreatedEvent) error {
	key := fmt.Sprintf("offer-%d", event.OfferID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOfferAccepted publishes an OfferAccepted event
func (ep *EventPublisher) PublishOfferAccepted(ctx context.Context, event *models.OfferAcceptedEvent) error {
	key := fmt.Sprintf("offer-%d", event.OfferID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOfferRejected publishes an OfferRejected event
func (ep *EventPublisher) PublishOfferRejected(ctx context.Context, event *models.OfferRejectedEvent) error {
	key := fmt.Sprintf("offer-%d", event.OfferID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed trade events to registered callbacks
type EventHandler struct {
	onOfferCreated  func(context.Context, *models.OfferCreatedEvent) error
	onOfferAccepted func(context.Context, *models.OfferAcceptedEvent) error
	onOfferRejected func(context.Context, *models.OfferRejectedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOfferCreated registers a handler for OfferCreated events
func (eh *EventHandler) OnOfferCreated(handler func(context.Context, *models.OfferCreatedEvent) error) {
	eh.onOfferCreated = handler
}

// OnOfferAccepted registers a handler for OfferAccepted events
func (eh *EventHandler) OnOfferAccepted(handler func(context.Context, *models.OfferAcceptedEvent) error) {
	eh.onOfferAccepted = handler
}

// OnOfferRejected registers a handler for OfferRejected events
func (eh *EventHandler) OnOfferRejected(handler func(context.Context, *models.OfferRejectedEvent) error) {
	eh.onOfferRejected = handler
}

// HandleMessage routes messages to the appropriate handler
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOfferCreated:
		if eh.onOfferCreated != nil {
			var event models.OfferCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OfferCreated event: %w", err)
			}
			return eh.onOfferCreated(ctx, &event)
		}

	case models.EventTypeOfferAccepted:
		if eh.onOfferAccepted != nil {
			var event models.OfferAcceptedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OfferAccepted event: %w", err)
			}
			return eh.onOfferAccepted(ctx, &event)
		}

	case models.EventTypeOfferRejected:
		if eh.onOfferRejected != nil {
			var event models.OfferRejectedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OfferRejected event: %w", err)
			}
			return eh.onOfferRejected(ctx, &event)
		}

	default:
		util.GetLogger().Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
