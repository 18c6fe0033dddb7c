package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewBaseEvent creates the common envelope for a session event
func NewBaseEvent(eventType, sessionID string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// EventPublisher publishes cart and wishlist activity keyed by session
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func sessionKey(sessionID string) string {
	return "session-" + sessionID
}

func (ep *EventPublisher) publish(ctx context.Context, base models.BaseEvent, event interface{}) error {
	if err := ep.producer.PublishEvent(ctx, sessionKey(base.SessionID), event); err != nil {
		util.EventsPublishFailedTotal.Inc()
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(base.EventType).Inc()
	return nil
}

// PublishCartItem publishes a cart line event
func (ep *EventPublisher) PublishCartItem(ctx context.Context, event *models.CartItemEvent) error {
	return ep.publish(ctx, event.BaseEvent, event)
}

// PublishWishlistItem publishes a wishlist entry event
func (ep *EventPublisher) PublishWishlistItem(ctx context.Context, event *models.WishlistItemEvent) error {
	return ep.publish(ctx, event.BaseEvent, event)
}

// PublishLedgerCleared publishes a cart or wishlist cleared event
func (ep *EventPublisher) PublishLedgerCleared(ctx context.Context, event *models.LedgerClearedEvent) error {
	return ep.publish(ctx, event.BaseEvent, event)
}

// EventHandler routes incoming storefront events by type
type EventHandler struct {
	onCartItem      func(context.Context, *models.CartItemEvent) error
	onWishlistItem  func(context.Context, *models.WishlistItemEvent) error
	onLedgerCleared func(context.Context, *models.LedgerClearedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnCartItem registers a handler for cart line events
func (eh *EventHandler) OnCartItem(handler func(context.Context, *models.CartItemEvent) error) {
	eh.onCartItem = handler
}

// OnWishlistItem registers a handler for wishlist entry events
func (eh *EventHandler) OnWishlistItem(handler func(context.Context, *models.WishlistItemEvent) error) {
	eh.onWishlistItem = handler
}

// OnLedgerCleared registers a handler for cleared events
func (eh *EventHandler) OnLedgerCleared(handler func(context.Context, *models.LedgerClearedEvent) error) {
	eh.onLedgerCleared = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID),
	)

	switch baseEvent.EventType {
	case models.EventTypeCartItemAdded, models.EventTypeCartItemRemoved, models.EventTypeCartQuantityUpdated:
		if eh.onCartItem != nil {
			var event models.CartItemEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onCartItem(ctx, &event)
		}

	case models.EventTypeWishlistItemAdded, models.EventTypeWishlistItemRemoved, models.EventTypeWishlistItemMoved:
		if eh.onWishlistItem != nil {
			var event models.WishlistItemEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onWishlistItem(ctx, &event)
		}

	case models.EventTypeCartCleared, models.EventTypeWishlistCleared:
		if eh.onLedgerCleared != nil {
			var event models.LedgerClearedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onLedgerCleared(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
