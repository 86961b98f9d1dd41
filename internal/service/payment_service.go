package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"
	"travel-booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentStore persists payment records.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FinalizePayment(ctx context.Context, paymentID int64, status models.PaymentStatus, paymentDate *time.Time) error
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error)
	GetPaymentsByUserID(ctx context.Context, userID int64) ([]models.Payment, error)
}

// PaymentEventPublisher publishes payment outcome events.
type PaymentEventPublisher interface {
	PublishPaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// PaymentService processes payments against a simulated gateway. The
// record-first contract holds regardless of outcome: every attempt gets
// a durable PaymentRecord with its own transaction id before the
// gateway is called, and the record is finalized afterwards. A real
// gateway adapter would replace only the roll/delay seam.
type PaymentService struct {
	store       PaymentStore
	publisher   PaymentEventPublisher
	logger      *zap.Logger
	successRate float64
	timeout     time.Duration

	// gateway simulation seams, swappable in tests
	roll  func() float64
	delay func()
}

// NewPaymentService creates a new payment service. The timeout bounds
// one full attempt, record plus gateway call plus finalization.
func NewPaymentService(store PaymentStore, publisher PaymentEventPublisher, successRate float64, timeout time.Duration) *PaymentService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PaymentService{
		store:       store,
		publisher:   publisher,
		logger:      util.GetLogger(),
		successRate: successRate,
		timeout:     timeout,
		roll:        rand.Float64,
		delay: func() {
			time.Sleep(time.Duration(100+rand.Intn(400)) * time.Millisecond)
		},
	}
}

// ProcessPaymentRequest carries one payment attempt. Amount is in cents.
type ProcessPaymentRequest struct {
	BookingID int64  `json:"booking_id" binding:"required"`
	UserID    int64  `json:"user_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,min=1"`
	Method    string `json:"method" binding:"required"`
}

// Process runs one payment attempt. On either outcome the booking
// subsystem is notified asynchronously through a payment event; that
// notification is best-effort; the payment outcome itself is already
// durable when it is published.
func (ps *PaymentService) Process(ctx context.Context, req *ProcessPaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Process")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, ps.timeout)
	defer cancel()

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	payment := &models.Payment{
		BookingID:     req.BookingID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        models.PaymentStatusPending,
		TransactionID: generateTransactionID(),
	}

	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	ps.logger.Info("Processing payment",
		zap.Int64("booking_id", req.BookingID),
		zap.Int64("amount", req.Amount),
		zap.String("transaction_id", payment.TransactionID))

	ps.delay()
	success := ps.roll() < ps.successRate

	if success {
		now := time.Now()
		if err := ps.store.FinalizePayment(ctx, payment.ID, models.PaymentStatusSuccess, &now); err != nil {
			return nil, fmt.Errorf("failed to finalize payment: %w", err)
		}
		payment.Status = models.PaymentStatusSuccess
		payment.PaymentDate = &now

		util.PaymentSuccessTotal.Inc()
		ps.logger.Info("Payment succeeded",
			zap.Int64("booking_id", req.BookingID),
			zap.String("transaction_id", payment.TransactionID))

		event := &models.PaymentSucceededEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentSucceeded,
				Timestamp: time.Now(),
			},
			BookingID:     req.BookingID,
			PaymentID:     payment.ID,
			Amount:        req.Amount,
			TransactionID: payment.TransactionID,
		}
		if err := ps.publisher.PublishPaymentSucceeded(ctx, event); err != nil {
			ps.logger.Error("Failed to publish PaymentSucceeded event", zap.Error(err))
		}

		return payment, nil
	}

	if err := ps.store.FinalizePayment(ctx, payment.ID, models.PaymentStatusFailed, nil); err != nil {
		return nil, fmt.Errorf("failed to finalize payment: %w", err)
	}
	payment.Status = models.PaymentStatusFailed

	util.PaymentFailedTotal.Inc()
	ps.logger.Warn("Payment failed",
		zap.Int64("booking_id", req.BookingID),
		zap.String("transaction_id", payment.TransactionID))

	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: time.Now(),
		},
		BookingID: req.BookingID,
		PaymentID: payment.ID,
		Reason:    "gateway_declined",
	}
	if err := ps.publisher.PublishPaymentFailed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}

	return payment, fmt.Errorf("booking %d: %w", req.BookingID, errs.ErrPaymentFailed)
}

// GetPayment retrieves a payment by ID
func (ps *PaymentService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return ps.store.GetPaymentByID(ctx, id)
}

// GetPaymentByBooking retrieves the latest payment for a booking
func (ps *PaymentService) GetPaymentByBooking(ctx context.Context, bookingID int64) (*models.Payment, error) {
	return ps.store.GetPaymentByBookingID(ctx, bookingID)
}

// ListPaymentsByUser retrieves all payments made by a user
func (ps *PaymentService) ListPaymentsByUser(ctx context.Context, userID int64) ([]models.Payment, error) {
	return ps.store.GetPaymentsByUserID(ctx, userID)
}

func generateTransactionID() string {
	return "TXN-" + strings.ToUpper(uuid.New().String()[:8])
}
