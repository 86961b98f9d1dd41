package service

import (
	"context"
	"time"

	"travel-booking-service/internal/models"
	"travel-booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationPublisher hands a notification request to the dispatch
// worker's topic.
type NotificationPublisher interface {
	PublishNotificationRequested(ctx context.Context, event *models.NotificationRequestedEvent) error
}

// NotificationSender is the notification collaborator.
type NotificationSender interface {
	Send(ctx context.Context, req *models.NotificationRequest) error
}

// NotificationStore keeps the local dispatch log.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	UpdateNotificationStatus(ctx context.Context, id int64, status string, sentAt *time.Time) error
}

// NotificationService decouples notification dispatch from the request
// path. Notify publishes the request and returns; Deliver runs on the
// worker, records the attempt and calls the collaborator. Failures on
// either side are logged and absorbed; a notification never affects a
// saga outcome.
type NotificationService struct {
	publisher NotificationPublisher
	sender    NotificationSender
	store     NotificationStore
	logger    *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(publisher NotificationPublisher, sender NotificationSender, store NotificationStore) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		sender:    sender,
		store:     store,
		logger:    util.GetLogger(),
	}
}

// Notify queues a notification request, fire-and-forget
func (ns *NotificationService) Notify(ctx context.Context, req *models.NotificationRequest) {
	event := &models.NotificationRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeNotificationRequested,
			Timestamp: time.Now(),
		},
		Notification: *req,
	}

	if err := ns.publisher.PublishNotificationRequested(ctx, event); err != nil {
		ns.logger.Error("Failed to publish notification request",
			zap.Int64("booking_id", req.BookingID),
			zap.Error(err))
	}
}

// Deliver records the attempt and forwards it to the collaborator.
// Always returns nil: delivery failures are terminal for the message.
func (ns *NotificationService) Deliver(ctx context.Context, event *models.NotificationRequestedEvent) error {
	req := event.Notification

	entry := &models.Notification{
		UserID:    req.UserID,
		BookingID: req.BookingID,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Message:   req.Message,
		Type:      req.Type,
		Status:    models.NotificationStatusPending,
	}
	if err := ns.store.CreateNotification(ctx, entry); err != nil {
		ns.logger.Error("Failed to record notification", zap.Error(err))
	}

	if err := ns.sender.Send(ctx, &req); err != nil {
		util.NotificationsDispatchedTotal.WithLabelValues("failed").Inc()
		ns.logger.Error("Failed to deliver notification",
			zap.Int64("booking_id", req.BookingID),
			zap.String("recipient", req.Recipient),
			zap.Error(err))
		if entry.ID != 0 {
			_ = ns.store.UpdateNotificationStatus(ctx, entry.ID, models.NotificationStatusFailed, nil)
		}
		return nil
	}

	now := time.Now()
	util.NotificationsDispatchedTotal.WithLabelValues("sent").Inc()
	if entry.ID != 0 {
		_ = ns.store.UpdateNotificationStatus(ctx, entry.ID, models.NotificationStatusSent, &now)
	}

	ns.logger.Info("Notification delivered",
		zap.Int64("booking_id", req.BookingID),
		zap.String("subject", req.Subject))
	return nil
}
