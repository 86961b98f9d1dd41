package service

import (
	"context"
	"fmt"
	"time"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"
	"travel-booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingStore persists bookings and their status transitions.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	GetBookings(ctx context.Context) ([]models.Booking, error)
	GetBookingsByUserID(ctx context.Context, userID int64) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, next models.BookingStatus, paymentID *int64) (*models.Booking, error)
}

// IdempotencyCache is the Redis fast path for idempotency-key lookups.
// The store's unique key column stays authoritative.
type IdempotencyCache interface {
	GetIdempotencyKey(ctx context.Context, key string) (int64, error)
	SetIdempotencyKey(ctx context.Context, key string, bookingID int64, ttl time.Duration) error
}

// Inventory is the reservation contract of one inventory kind.
type Inventory interface {
	Get(ctx context.Context, id int64) (*models.InventoryItem, error)
	ReserveOne(ctx context.Context, id int64) error
	ReleaseOne(ctx context.Context, id int64) error
	CheckAvailable(ctx context.Context, id int64) (bool, error)
}

// UserValidator is the user-service collaborator.
type UserValidator interface {
	Validate(ctx context.Context, userID int64) (bool, error)
	GetDetails(ctx context.Context, userID int64) (*models.User, error)
}

// Notifier dispatches a best-effort notification. Implementations never
// surface delivery failures.
type Notifier interface {
	Notify(ctx context.Context, req *models.NotificationRequest)
}

// BookingEventPublisher publishes booking lifecycle events.
type BookingEventPublisher interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
	PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error
}

// BookingService drives the booking saga across the flight inventory,
// hotel inventory, booking store and collaborators.
type BookingService struct {
	store     BookingStore
	flights   Inventory
	hotels    Inventory
	users     UserValidator
	notifier  Notifier
	publisher BookingEventPublisher
	idem      IdempotencyCache
	logger    *zap.Logger
}

// NewBookingService creates a new booking service. The idempotency
// cache may be nil, in which case key lookups go to the store only.
func NewBookingService(
	store BookingStore,
	flights Inventory,
	hotels Inventory,
	users UserValidator,
	notifier Notifier,
	publisher BookingEventPublisher,
	idem IdempotencyCache,
) *BookingService {
	return &BookingService{
		store:     store,
		flights:   flights,
		hotels:    hotels,
		users:     users,
		notifier:  notifier,
		publisher: publisher,
		idem:      idem,
		logger:    util.GetLogger(),
	}
}

// CreateBookingRequest carries the caller's booking intent.
type CreateBookingRequest struct {
	UserID         int64
	FlightID       int64
	HotelID        int64
	TravelDate     time.Time
	IdempotencyKey string
}

// idempotencyTTL bounds the Redis fast path; the store's unique key
// column covers lookups past this window.
const idempotencyTTL = 24 * time.Hour

// CreateBooking runs the booking saga:
//
//  1. dedupe on the idempotency key
//  2. validate the traveler
//  3. quote flight and hotel
//  4. reserve a flight seat
//  5. reserve a hotel room
//  6. persist the booking as PENDING
//  7. fire a best-effort notification
//
// Each step that reserves a resource pushes a compensation; on a later
// failure the compensations run in reverse order, so no abort path
// leaks a reservation. The saga ends at PENDING. Payment and final
// confirmation happen on a separate, client-initiated request.
func (s *BookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateBooking")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	if existing, err := s.checkIdempotency(ctx, req.IdempotencyKey); err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	} else if existing != nil {
		s.logger.Info("Duplicate booking request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("booking_id", existing.ID))
		return existing, nil
	}

	valid, err := s.users.Validate(ctx, req.UserID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("user_validation").Inc()
		return nil, fmt.Errorf("validate user %d: %w: %v", req.UserID, errs.ErrUserValidationFailed, err)
	}
	if !valid {
		util.BookingsFailedTotal.WithLabelValues("user_validation").Inc()
		return nil, fmt.Errorf("user %d: %w", req.UserID, errs.ErrUserValidationFailed)
	}

	flight, err := s.flights.Get(ctx, req.FlightID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("flight_quote").Inc()
		return nil, fmt.Errorf("quote flight: %w", err)
	}
	hotel, err := s.hotels.Get(ctx, req.HotelID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("hotel_quote").Inc()
		return nil, fmt.Errorf("quote hotel: %w", err)
	}

	// Completed reservations push their compensation here; an abort
	// unwinds them in reverse order.
	var compensations []func()
	compensate := func() {
		for i := len(compensations) - 1; i >= 0; i-- {
			compensations[i]()
		}
	}

	if err := s.flights.ReserveOne(ctx, req.FlightID); err != nil {
		util.BookingsFailedTotal.WithLabelValues("flight_unavailable").Inc()
		return nil, fmt.Errorf("reserve flight %d: %w", req.FlightID, err)
	}
	compensations = append(compensations, func() {
		util.SagaCompensationsTotal.WithLabelValues("release_flight").Inc()
		if err := s.flights.ReleaseOne(ctx, req.FlightID); err != nil {
			s.logger.Error("Failed to release flight during compensation",
				zap.Int64("flight_id", req.FlightID),
				zap.Error(err))
		}
	})

	if err := s.hotels.ReserveOne(ctx, req.HotelID); err != nil {
		compensate()
		util.BookingsFailedTotal.WithLabelValues("hotel_unavailable").Inc()
		return nil, fmt.Errorf("reserve hotel %d: %w", req.HotelID, err)
	}
	compensations = append(compensations, func() {
		util.SagaCompensationsTotal.WithLabelValues("release_hotel").Inc()
		if err := s.hotels.ReleaseOne(ctx, req.HotelID); err != nil {
			s.logger.Error("Failed to release hotel during compensation",
				zap.Int64("hotel_id", req.HotelID),
				zap.Error(err))
		}
	})

	booking := &models.Booking{
		UserID:         req.UserID,
		FlightID:       req.FlightID,
		HotelID:        req.HotelID,
		IdempotencyKey: req.IdempotencyKey,
		TravelDate:     req.TravelDate,
		FlightPrice:    flight.Price,
		HotelPrice:     hotel.Price,
		TotalCost:      flight.Price + hotel.Price,
		Status:         models.BookingStatusPending,
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		compensate()
		util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", booking.UserID),
		zap.Int64("total_cost", booking.TotalCost))

	if s.idem != nil {
		if err := s.idem.SetIdempotencyKey(ctx, req.IdempotencyKey, booking.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to cache idempotency key",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(err))
		}
	}

	event := &models.BookingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCreated,
			Timestamp: time.Now(),
		},
		BookingID: booking.ID,
		UserID:    booking.UserID,
		FlightID:  booking.FlightID,
		HotelID:   booking.HotelID,
		TotalCost: booking.TotalCost,
		Status:    string(booking.Status),
	}
	if err := s.publisher.PublishBookingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}

	s.notifyUser(ctx, booking, "Booking Created",
		fmt.Sprintf("Your booking for %s and %s has been created and is pending payment.",
			flight.Describe(), hotel.Describe()))

	return booking, nil
}

// checkIdempotency returns the booking already created under the key,
// or nil when the key is fresh. The cache is a fast path only; a miss
// or a stale entry falls through to the store's unique key column.
func (s *BookingService) checkIdempotency(ctx context.Context, key string) (*models.Booking, error) {
	if s.idem != nil {
		if id, err := s.idem.GetIdempotencyKey(ctx, key); err == nil {
			if booking, err := s.store.GetBookingByID(ctx, id); err == nil {
				return booking, nil
			}
		}
	}
	return s.store.GetBookingByIdempotencyKey(ctx, key)
}

// GetBooking retrieves a booking by ID
func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBookingByID(ctx, id)
}

// ListBookings retrieves all bookings
func (s *BookingService) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return s.store.GetBookings(ctx)
}

// ListBookingsByUser retrieves all bookings for a user
func (s *BookingService) ListBookingsByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	return s.store.GetBookingsByUserID(ctx, userID)
}

// UpdateStatus applies a status transition. The store enforces the
// transition table under a row lock, so this path and the asynchronous
// payment callback can never interleave unsafely. A CANCELLED target
// goes through Cancel so the inventory reservations are released.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, next models.BookingStatus, paymentID *int64) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.UpdateStatus")
	defer span.End()

	if next == models.BookingStatusCancelled {
		return s.Cancel(ctx, id)
	}

	booking, err := s.store.UpdateBookingStatus(ctx, id, next, paymentID)
	if err != nil {
		return nil, err
	}

	if next == models.BookingStatusConfirmed {
		util.BookingsConfirmedTotal.Inc()
	}

	s.notifyUser(ctx, booking, "Booking Status Updated",
		fmt.Sprintf("Your booking status has been updated to: %s", next))

	return booking, nil
}

// Cancel moves a booking to CANCELLED and releases both inventory
// reservations. Cancelling an already-terminal booking fails with
// ErrInvalidTransition.
func (s *BookingService) Cancel(ctx context.Context, id int64) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Cancel")
	defer span.End()

	booking, err := s.store.UpdateBookingStatus(ctx, id, models.BookingStatusCancelled, nil)
	if err != nil {
		return nil, err
	}

	util.BookingsCancelledTotal.Inc()
	s.logger.Info("Booking cancelled", zap.Int64("booking_id", booking.ID))

	// Best-effort: a failed release is logged, never surfaced.
	if err := s.flights.ReleaseOne(ctx, booking.FlightID); err != nil {
		s.logger.Error("Failed to release flight on cancellation",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("flight_id", booking.FlightID),
			zap.Error(err))
	}
	if err := s.hotels.ReleaseOne(ctx, booking.HotelID); err != nil {
		s.logger.Error("Failed to release hotel on cancellation",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("hotel_id", booking.HotelID),
			zap.Error(err))
	}

	event := &models.BookingCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCancelled,
			Timestamp: time.Now(),
		},
		BookingID: booking.ID,
		Reason:    "cancelled_by_user",
	}
	if err := s.publisher.PublishBookingCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCancelled event", zap.Error(err))
	}

	s.notifyUser(ctx, booking, "Booking Cancelled", "Your booking has been cancelled.")

	return booking, nil
}

// notifyUser dispatches a best-effort notification to the booking's
// owner. Failures to resolve the traveler are logged and absorbed.
func (s *BookingService) notifyUser(ctx context.Context, booking *models.Booking, subject, message string) {
	user, err := s.users.GetDetails(ctx, booking.UserID)
	if err != nil {
		s.logger.Warn("Failed to fetch user details for notification",
			zap.Int64("user_id", booking.UserID),
			zap.Error(err))
		return
	}

	s.notifier.Notify(ctx, &models.NotificationRequest{
		UserID:    user.ID,
		BookingID: booking.ID,
		Recipient: user.Email,
		Subject:   subject,
		Message:   message,
		Type:      "EMAIL",
	})
}
