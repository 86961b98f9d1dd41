package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePaymentStore struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]*models.Payment

	// statusAtCreate captures the status the record carried when it was
	// first persisted, to verify the record-first contract.
	statusAtCreate map[int64]models.PaymentStatus

	// sawDeadline records whether the context carried a deadline when
	// the record was created.
	sawDeadline bool
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		payments:       make(map[int64]*models.Payment),
		statusAtCreate: make(map[int64]models.PaymentStatus),
	}
}

func (f *fakePaymentStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.sawDeadline = ctx.Deadline()
	f.nextID++
	payment.ID = f.nextID
	stored := *payment
	f.payments[payment.ID] = &stored
	f.statusAtCreate[payment.ID] = payment.Status
	return nil
}

func (f *fakePaymentStore) FinalizePayment(ctx context.Context, paymentID int64, status models.PaymentStatus, paymentDate *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return fmt.Errorf("payment %d: %w", paymentID, errs.ErrNotFound)
	}
	p.Status = status
	p.PaymentDate = paymentDate
	return nil
}

func (f *fakePaymentStore) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", id, errs.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (f *fakePaymentStore) GetPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Payment
	for _, p := range f.payments {
		if p.BookingID == bookingID && (latest == nil || p.ID > latest.ID) {
			latest = p
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("booking %d payment: %w", bookingID, errs.ErrNotFound)
	}
	copied := *latest
	return &copied, nil
}

func (f *fakePaymentStore) GetPaymentsByUserID(ctx context.Context, userID int64) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakePaymentPublisher struct {
	succeeded []*models.PaymentSucceededEvent
	failed    []*models.PaymentFailedEvent
}

func (f *fakePaymentPublisher) PublishPaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	f.succeeded = append(f.succeeded, event)
	return nil
}

func (f *fakePaymentPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	f.failed = append(f.failed, event)
	return nil
}

func newPaymentFixture(roll float64) (*PaymentService, *fakePaymentStore, *fakePaymentPublisher) {
	store := newFakePaymentStore()
	publisher := &fakePaymentPublisher{}
	ps := NewPaymentService(store, publisher, 0.95, 30*time.Second)
	ps.roll = func() float64 { return roll }
	ps.delay = func() {}
	return ps, store, publisher
}

func testPaymentRequest() *ProcessPaymentRequest {
	return &ProcessPaymentRequest{
		BookingID: 42,
		UserID:    1,
		Amount:    40000,
		Method:    "CREDIT_CARD",
	}
}

func TestProcessPaymentSuccess(t *testing.T) {
	ps, store, publisher := newPaymentFixture(0.0)

	payment, err := ps.Process(context.Background(), testPaymentRequest())
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
	assert.NotNil(t, payment.PaymentDate)

	// The record existed as PENDING before the gateway resolved.
	assert.Equal(t, models.PaymentStatusPending, store.statusAtCreate[payment.ID])

	require.Len(t, publisher.succeeded, 1)
	assert.Equal(t, int64(42), publisher.succeeded[0].BookingID)
	assert.Equal(t, payment.ID, publisher.succeeded[0].PaymentID)
	assert.Empty(t, publisher.failed)
}

func TestProcessPaymentDeclined(t *testing.T) {
	ps, store, publisher := newPaymentFixture(1.0)

	payment, err := ps.Process(context.Background(), testPaymentRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrPaymentFailed))

	// The declined attempt still has a durable record.
	require.NotNil(t, payment)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Nil(t, payment.PaymentDate)
	assert.Equal(t, models.PaymentStatusPending, store.statusAtCreate[payment.ID])

	require.Len(t, publisher.failed, 1)
	assert.Equal(t, int64(42), publisher.failed[0].BookingID)
	assert.Empty(t, publisher.succeeded)
}

func TestProcessPaymentAttemptIsBounded(t *testing.T) {
	ps, store, _ := newPaymentFixture(0.0)

	_, err := ps.Process(context.Background(), testPaymentRequest())
	require.NoError(t, err)

	// The configured timeout bounds the whole attempt.
	assert.True(t, store.sawDeadline)
}

func TestTransactionIDsUnique(t *testing.T) {
	ps, _, _ := newPaymentFixture(1.0)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		payment, _ := ps.Process(context.Background(), testPaymentRequest())
		require.NotNil(t, payment)

		assert.True(t, strings.HasPrefix(payment.TransactionID, "TXN-"))
		assert.Len(t, payment.TransactionID, 12)
		assert.False(t, seen[payment.TransactionID], "duplicate transaction id %s", payment.TransactionID)
		seen[payment.TransactionID] = true
	}
}
