package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ActivityWorker consumes storefront events and records them as metrics
type ActivityWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewActivityWorker creates a new activity worker
func NewActivityWorker(consumer *broker.Consumer) *ActivityWorker {
	w := &ActivityWorker{
		consumer: consumer,
		logger:   util.GetLogger(),
	}
	w.eventHandler = w.newEventHandler()
	return w
}

func (w *ActivityWorker) newEventHandler() *broker.EventHandler {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnCartItem(w.handleCartItem)
	eventHandler.OnWishlistItem(w.handleWishlistItem)
	eventHandler.OnLedgerCleared(w.handleLedgerCleared)
	return eventHandler
}

// Start consumes events until ctx is cancelled
func (w *ActivityWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting activity worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ActivityWorker) Stop() error {
	w.logger.Info("Stopping activity worker")
	return w.consumer.Close()
}

func (w *ActivityWorker) handleCartItem(ctx context.Context, event *models.CartItemEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	w.logger.Debug("Cart activity",
		zap.String("session_id", event.SessionID),
		zap.String("type", event.EventType),
		zap.Int64("product_id", event.ProductID),
		zap.Int("quantity", event.Quantity),
	)
	return nil
}

func (w *ActivityWorker) handleWishlistItem(ctx context.Context, event *models.WishlistItemEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	w.logger.Debug("Wishlist activity",
		zap.String("session_id", event.SessionID),
		zap.String("type", event.EventType),
		zap.Int64("product_id", event.ProductID),
	)
	return nil
}

func (w *ActivityWorker) handleLedgerCleared(ctx context.Context, event *models.LedgerClearedEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	w.logger.Debug("Ledger cleared",
		zap.String("session_id", event.SessionID),
		zap.String("type", event.EventType),
		zap.Int("removed", event.Removed),
	)
	return nil
}
