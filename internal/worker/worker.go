package worker

import (
	"context"

	"trade-service/internal/broker"
	"trade-service/internal/models"
	"trade-service/internal/service"
	"trade-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes trade events and delivers the notification
// batch they carry as chat messages. Delivery is best-effort; a message is
// only retried when the whole handler fails before any delivery attempt.
type NotificationWorker struct {
	consumer      *broker.Consumer
	eventHandler  *broker.EventHandler
	notifications *service.NotificationService
	logger        *zap.Logger
}

// NewNotificationWorker creates a notification worker over a consumer
func NewNotificationWorker(
	consumer *broker.Consumer,
	notifications *service.NotificationService,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer:      consumer,
		notifications: notifications,
		logger:        util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOfferCreated(func(ctx context.Context, event *models.OfferCreatedEvent) error {
		return w.deliver(ctx, event.Notifications)
	})
	eventHandler.OnOfferAccepted(func(ctx context.Context, event *models.OfferAcceptedEvent) error {
		return w.deliver(ctx, event.Notifications)
	})
	eventHandler.OnOfferRejected(func(ctx context.Context, event *models.OfferRejectedEvent) error {
		return w.deliver(ctx, event.Notifications)
	})
	w.eventHandler = eventHandler

	return w
}

func (w *NotificationWorker) deliver(ctx context.Context, batch []models.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	w.notifications.DeliverAll(ctx, batch)
	return nil
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}
