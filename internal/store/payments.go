package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"
)

// CreatePayment creates a new payment record
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (booking_id, user_id, amount, method, status, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, payment, query,
		payment.BookingID, payment.UserID, payment.Amount, payment.Method,
		payment.Status, payment.TransactionID)
}

// FinalizePayment moves a payment to its terminal outcome. The payment
// date is set only on SUCCESS.
func (s *Store) FinalizePayment(ctx context.Context, paymentID int64, status models.PaymentStatus, paymentDate *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = $1, payment_date = $2, updated_at = NOW() WHERE id = $3",
		status, paymentDate, paymentID)
	return err
}

// GetPaymentByID retrieves a payment by ID
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentByBookingID retrieves the latest payment for a booking
func (s *Store) GetPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1", bookingID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment for booking %d: %w", bookingID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsByUserID retrieves all payments made by a user
func (s *Store) GetPaymentsByUserID(ctx context.Context, userID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return payments, err
}

// CreateNotification records a notification dispatch attempt
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, booking_id, recipient, subject, message, type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, n, query,
		n.UserID, n.BookingID, n.Recipient, n.Subject, n.Message, n.Type, n.Status)
}

// UpdateNotificationStatus records the delivery outcome
func (s *Store) UpdateNotificationStatus(ctx context.Context, id int64, status string, sentAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET status = $1, sent_at = $2 WHERE id = $3",
		status, sentAt, id)
	return err
}
