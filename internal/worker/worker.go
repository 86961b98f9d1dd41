package worker

import (
	"context"

	"travel-booking-service/internal/broker"
	"travel-booking-service/internal/service"
	"travel-booking-service/internal/util"
)

// BookingWorker consumes payment outcome events and feeds them to the
// saga orchestrator, which applies the corresponding booking status.
type BookingWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewBookingWorker creates a new booking worker
func NewBookingWorker(consumer *broker.Consumer, orchestrator *service.SagaOrchestrator) *BookingWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentSucceeded(orchestrator.HandlePaymentSucceeded)
	eventHandler.OnPaymentFailed(orchestrator.HandlePaymentFailed)

	return &BookingWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *BookingWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting booking worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *BookingWorker) Stop() error {
	util.GetLogger().Info("Stopping booking worker")
	return w.consumer.Close()
}

// NotificationWorker consumes notification requests and delivers them
// through the notification collaborator.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifications *service.NotificationService) *NotificationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnNotificationRequested(notifications.Deliver)

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (nw *NotificationWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting notification worker")
	return nw.consumer.StartConsuming(ctx, nw.eventHandler.HandleMessage)
}

// Stop stops the worker
func (nw *NotificationWorker) Stop() error {
	util.GetLogger().Info("Stopping notification worker")
	return nw.consumer.Close()
}
