package store

import (
	"context"
	"database/sql"
	"fmt"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"
)

// CreateBooking persists a new booking. Timestamps are set by the
// database on write. The idempotency key carries a unique constraint.
func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (user_id, flight_id, hotel_id, idempotency_key, travel_date, flight_price, hotel_price, total_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, booking, query,
		booking.UserID, booking.FlightID, booking.HotelID, booking.IdempotencyKey,
		booking.TravelDate, booking.FlightPrice, booking.HotelPrice, booking.TotalCost, booking.Status)
}

// GetBookingByIdempotencyKey retrieves the booking created under a key,
// or nil when the key has never been used.
func (s *Store) GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookings retrieves all bookings
func (s *Store) GetBookings(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, "SELECT * FROM bookings ORDER BY created_at DESC")
	return bookings, err
}

// GetBookingsByUserID retrieves bookings for a user
func (s *Store) GetBookingsByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return bookings, err
}

// UpdateBookingStatus moves a booking to a new status under a row lock,
// enforcing the transition table. The lock serializes the orchestrator's
// failure-path writes against the asynchronous payment callback; an
// illegal transition is rejected rather than silently applied.
func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, next models.BookingStatus, paymentID *int64) (*models.Booking, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current models.BookingStatus
	err = tx.GetContext(ctx, &current, "SELECT status FROM bookings WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}

	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("booking %d: %s -> %s: %w", id, current, next, errs.ErrInvalidTransition)
	}

	var booking models.Booking
	if paymentID != nil {
		err = tx.GetContext(ctx, &booking,
			"UPDATE bookings SET status = $1, payment_id = $2, updated_at = NOW() WHERE id = $3 RETURNING *",
			next, *paymentID, id)
	} else {
		err = tx.GetContext(ctx, &booking,
			"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING *",
			next, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &booking, nil
}
