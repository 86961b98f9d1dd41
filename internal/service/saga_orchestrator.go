package service

import (
	"context"
	"errors"
	"fmt"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"
	"travel-booking-service/internal/util"

	"go.uber.org/zap"
)

// BookingStatusUpdater is the booking subsystem's status-update
// operation, the only door through which payment outcomes enter.
type BookingStatusUpdater interface {
	UpdateStatus(ctx context.Context, id int64, next models.BookingStatus, paymentID *int64) (*models.Booking, error)
}

// ProcessedEventStore keeps consumed event ids so redelivered messages
// apply at most once.
type ProcessedEventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// SagaOrchestrator completes the booking saga's asynchronous leg: it
// consumes payment outcomes and applies them to the booking. The store
// serializes its writes against the synchronous paths, and outcomes
// that arrive after the booking reached a terminal state are logged as
// orphaned rather than retried.
type SagaOrchestrator struct {
	events   ProcessedEventStore
	bookings BookingStatusUpdater
	flights  Inventory
	hotels   Inventory
	logger   *zap.Logger
}

// NewSagaOrchestrator creates a new saga orchestrator
func NewSagaOrchestrator(
	events ProcessedEventStore,
	bookings BookingStatusUpdater,
	flights Inventory,
	hotels Inventory,
) *SagaOrchestrator {
	return &SagaOrchestrator{
		events:   events,
		bookings: bookings,
		flights:  flights,
		hotels:   hotels,
		logger:   util.GetLogger(),
	}
}

// HandlePaymentSucceeded confirms the booking for a successful payment
func (so *SagaOrchestrator) HandlePaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	ctx, span := util.StartSpan(ctx, "SagaOrchestrator.HandlePaymentSucceeded")
	defer span.End()

	processed, err := so.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	so.logger.Info("Handling payment success",
		zap.Int64("booking_id", event.BookingID),
		zap.String("transaction_id", event.TransactionID))

	booking, err := so.bookings.UpdateStatus(ctx, event.BookingID, models.BookingStatusConfirmed, &event.PaymentID)
	if so.orphaned(ctx, event.BookingID, err) {
		return so.markProcessed(ctx, event.EventID, event.EventType)
	}
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	so.logger.Info("Booking confirmed", zap.Int64("booking_id", booking.ID))
	return so.markProcessed(ctx, event.EventID, event.EventType)
}

// HandlePaymentFailed fails the booking and releases both reservations.
// FAILED is terminal, so the units would otherwise leak forever.
func (so *SagaOrchestrator) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "SagaOrchestrator.HandlePaymentFailed")
	defer span.End()

	processed, err := so.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	so.logger.Warn("Handling payment failure",
		zap.Int64("booking_id", event.BookingID),
		zap.String("reason", event.Reason))

	booking, err := so.bookings.UpdateStatus(ctx, event.BookingID, models.BookingStatusFailed, &event.PaymentID)
	if so.orphaned(ctx, event.BookingID, err) {
		return so.markProcessed(ctx, event.EventID, event.EventType)
	}
	if err != nil {
		return fmt.Errorf("failed to mark booking failed: %w", err)
	}

	if err := so.flights.ReleaseOne(ctx, booking.FlightID); err != nil {
		so.logger.Error("Failed to release flight after payment failure",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
	if err := so.hotels.ReleaseOne(ctx, booking.HotelID); err != nil {
		so.logger.Error("Failed to release hotel after payment failure",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}

	so.logger.Info("Booking failed and compensated", zap.Int64("booking_id", booking.ID))
	return so.markProcessed(ctx, event.EventID, event.EventType)
}

// orphaned reports whether a payment outcome can no longer be applied:
// the booking is already terminal (e.g. cancelled while the payment was
// in flight) or gone. Such outcomes are recorded and never retried.
func (so *SagaOrchestrator) orphaned(ctx context.Context, bookingID int64, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errs.ErrInvalidTransition) || errors.Is(err, errs.ErrNotFound) {
		util.OrphanedPaymentOutcomesTotal.Inc()
		so.logger.Warn("Orphaned payment outcome",
			zap.Int64("booking_id", bookingID),
			zap.Error(err))
		return true
	}
	return false
}

func (so *SagaOrchestrator) markProcessed(ctx context.Context, eventID, eventType string) error {
	if err := so.events.MarkEventProcessed(ctx, eventID, eventType); err != nil {
		so.logger.Error("Failed to mark event processed", zap.String("event_id", eventID), zap.Error(err))
	}
	return nil
}
