package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"travel-booking-service/internal/errs"
	"travel-booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInventory is a mutex-guarded in-memory inventory, so concurrent
// reservations exercise the same check-then-decrement contract the real
// store enforces under row locks.
type fakeInventory struct {
	mu       sync.Mutex
	prices   map[int64]int64
	units    map[int64]int
	totals   map[int64]int
	desc     map[int64]models.InventoryItem
	releases int
}

func newFakeInventory(items map[int64]struct {
	price int64
	units int
}) *fakeInventory {
	inv := &fakeInventory{
		prices: make(map[int64]int64),
		units:  make(map[int64]int),
		totals: make(map[int64]int),
		desc:   make(map[int64]models.InventoryItem),
	}
	for id, item := range items {
		inv.prices[id] = item.price
		inv.units[id] = item.units
		inv.totals[id] = item.units
	}
	return inv
}

func (f *fakeInventory) Get(ctx context.Context, id int64) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, errs.ErrNotFound)
	}
	item := f.desc[id]
	item.ID = id
	item.Price = price
	item.AvailableUnits = f.units[id]
	item.TotalUnits = f.totals[id]
	return &item, nil
}

func (f *fakeInventory) ReserveOne(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.units[id]; !ok {
		return fmt.Errorf("item %d: %w", id, errs.ErrNotFound)
	}
	if f.units[id] <= 0 {
		return fmt.Errorf("item %d: %w", id, errs.ErrSoldOut)
	}
	f.units[id]--
	return nil
}

func (f *fakeInventory) ReleaseOne(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.units[id] < f.totals[id] {
		f.units[id]++
	}
	f.releases++
	return nil
}

func (f *fakeInventory) CheckAvailable(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units[id] > 0, nil
}

func (f *fakeInventory) available(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units[id]
}

type fakeBookingStore struct {
	mu        sync.Mutex
	nextID    int64
	bookings  map[int64]*models.Booking
	createErr error
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[int64]*models.Booking)}
}

func (f *fakeBookingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	booking.ID = f.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	stored := *booking
	f.bookings[booking.ID] = &stored
	return nil
}

func (f *fakeBookingStore) GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.IdempotencyKey == key {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeBookingStore) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, errs.ErrNotFound)
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookingStore) GetBookings(ctx context.Context) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Booking, 0, len(f.bookings))
	for _, b := range f.bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBookingStore) GetBookingsByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) UpdateBookingStatus(ctx context.Context, id int64, next models.BookingStatus, paymentID *int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, errs.ErrNotFound)
	}
	if !b.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("booking %d: %s -> %s: %w", id, b.Status, next, errs.ErrInvalidTransition)
	}
	b.Status = next
	if paymentID != nil {
		b.PaymentID = paymentID
	}
	b.UpdatedAt = time.Now()
	copied := *b
	return &copied, nil
}

type fakeIdemCache struct {
	mu   sync.Mutex
	keys map[string]int64
}

func newFakeIdemCache() *fakeIdemCache {
	return &fakeIdemCache{keys: make(map[string]int64)}
}

func (f *fakeIdemCache) GetIdempotencyKey(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.keys[key]
	if !ok {
		return 0, fmt.Errorf("key %s: %w", key, errs.ErrNotFound)
	}
	return id, nil
}

func (f *fakeIdemCache) SetIdempotencyKey(ctx context.Context, key string, bookingID int64, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = bookingID
	return nil
}

type fakeUsers struct {
	valid bool
	err   error
}

func (f *fakeUsers) Validate(ctx context.Context, userID int64) (bool, error) {
	return f.valid, f.err
}

func (f *fakeUsers) GetDetails(ctx context.Context, userID int64) (*models.User, error) {
	return &models.User{ID: userID, Name: "Test Traveler", Email: "traveler@example.com"}, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	requests []models.NotificationRequest
}

func (f *fakeNotifier) Notify(ctx context.Context, req *models.NotificationRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, *req)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeBookingPublisher struct {
	mu        sync.Mutex
	created   []*models.BookingCreatedEvent
	cancelled []*models.BookingCancelledEvent
}

func (f *fakeBookingPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, event)
	return nil
}

func (f *fakeBookingPublisher) PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, event)
	return nil
}

type bookingFixture struct {
	svc      *BookingService
	store    *fakeBookingStore
	flights  *fakeInventory
	hotels   *fakeInventory
	users    *fakeUsers
	notifier *fakeNotifier
	events   *fakeBookingPublisher
	idem     *fakeIdemCache
}

func newBookingFixture(flightUnits, hotelUnits int) *bookingFixture {
	flights := newFakeInventory(map[int64]struct {
		price int64
		units int
	}{
		10: {price: 25000, units: flightUnits},
	})
	flights.desc[10] = models.InventoryItem{
		FlightNumber: "GA-417",
		Airline:      "Garuda",
		Origin:       "CGK",
		Destination:  "DPS",
	}
	hotels := newFakeInventory(map[int64]struct {
		price int64
		units int
	}{
		20: {price: 15000, units: hotelUnits},
	})
	hotels.desc[20] = models.InventoryItem{
		Name:     "Grand Inna",
		Location: "Denpasar",
	}

	store := newFakeBookingStore()
	users := &fakeUsers{valid: true}
	notifier := &fakeNotifier{}
	events := &fakeBookingPublisher{}
	idem := newFakeIdemCache()

	return &bookingFixture{
		svc:      NewBookingService(store, flights, hotels, users, notifier, events, idem),
		store:    store,
		flights:  flights,
		hotels:   hotels,
		users:    users,
		notifier: notifier,
		events:   events,
		idem:     idem,
	}
}

func testBookingRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		UserID:     1,
		FlightID:   10,
		HotelID:    20,
		TravelDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	fx := newBookingFixture(5, 5)

	booking, err := fx.svc.CreateBooking(context.Background(), testBookingRequest())
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, int64(25000), booking.FlightPrice)
	assert.Equal(t, int64(15000), booking.HotelPrice)
	assert.Equal(t, booking.FlightPrice+booking.HotelPrice, booking.TotalCost)

	assert.Equal(t, 4, fx.flights.available(10))
	assert.Equal(t, 4, fx.hotels.available(20))

	assert.Len(t, fx.events.created, 1)
	require.Equal(t, 1, fx.notifier.count())

	// The notification names the trip, not just ids.
	message := fx.notifier.requests[0].Message
	assert.Contains(t, message, "GA-417")
	assert.Contains(t, message, "Grand Inna")
}

func TestCreateBookingIdempotentRetry(t *testing.T) {
	fx := newBookingFixture(5, 5)

	req := testBookingRequest()
	req.IdempotencyKey = "retry-key-1"

	first, err := fx.svc.CreateBooking(context.Background(), req)
	require.NoError(t, err)

	retry := testBookingRequest()
	retry.IdempotencyKey = "retry-key-1"

	second, err := fx.svc.CreateBooking(context.Background(), retry)
	require.NoError(t, err)

	// The retry returns the original booking and reserves nothing.
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, fx.store.bookings, 1)
	assert.Equal(t, 4, fx.flights.available(10))
	assert.Equal(t, 4, fx.hotels.available(20))
}

func TestCreateBookingIdempotentRetryWithoutCache(t *testing.T) {
	fx := newBookingFixture(5, 5)
	// The store's unique key column alone must dedupe.
	fx.svc.idem = nil

	req := testBookingRequest()
	req.IdempotencyKey = "retry-key-2"
	first, err := fx.svc.CreateBooking(context.Background(), req)
	require.NoError(t, err)

	retry := testBookingRequest()
	retry.IdempotencyKey = "retry-key-2"
	second, err := fx.svc.CreateBooking(context.Background(), retry)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, fx.store.bookings, 1)
	assert.Equal(t, 4, fx.flights.available(10))
}

func TestCreateBookingUserInvalid(t *testing.T) {
	fx := newBookingFixture(5, 5)
	fx.users.valid = false

	_, err := fx.svc.CreateBooking(context.Background(), testBookingRequest())
	assert.True(t, errors.Is(err, errs.ErrUserValidationFailed))

	// No reservation should have been attempted.
	assert.Equal(t, 5, fx.flights.available(10))
	assert.Equal(t, 5, fx.hotels.available(20))
	assert.Empty(t, fx.store.bookings)
}

func TestCreateBookingHotelSoldOutReleasesFlight(t *testing.T) {
	fx := newBookingFixture(5, 0)

	_, err := fx.svc.CreateBooking(context.Background(), testBookingRequest())
	assert.True(t, errors.Is(err, errs.ErrSoldOut))

	// Compensation returned the flight seat.
	assert.Equal(t, 5, fx.flights.available(10))
	assert.Equal(t, 1, fx.flights.releases)
	assert.Empty(t, fx.store.bookings)
}

func TestCreateBookingStoreFailureReleasesBoth(t *testing.T) {
	fx := newBookingFixture(5, 5)
	fx.store.createErr = errors.New("connection reset")

	_, err := fx.svc.CreateBooking(context.Background(), testBookingRequest())
	require.Error(t, err)

	assert.Equal(t, 5, fx.flights.available(10))
	assert.Equal(t, 5, fx.hotels.available(20))
	assert.Equal(t, 1, fx.flights.releases)
	assert.Equal(t, 1, fx.hotels.releases)
}

func TestCancelReleasesInventory(t *testing.T) {
	fx := newBookingFixture(5, 5)

	booking, err := fx.svc.CreateBooking(context.Background(), testBookingRequest())
	require.NoError(t, err)

	cancelled, err := fx.svc.Cancel(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	assert.Equal(t, 5, fx.flights.available(10))
	assert.Equal(t, 5, fx.hotels.available(20))
	assert.Len(t, fx.events.cancelled, 1)

	// Cancelling a terminal booking is rejected.
	_, err = fx.svc.Cancel(context.Background(), booking.ID)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
}

func TestUpdateStatusCancelledReleasesInventory(t *testing.T) {
	fx := newBookingFixture(5, 5)

	booking, err := fx.svc.CreateBooking(context.Background(), testBookingRequest())
	require.NoError(t, err)

	// A CANCELLED target on the status path must behave like Cancel.
	updated, err := fx.svc.UpdateStatus(context.Background(), booking.ID, models.BookingStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, updated.Status)

	assert.Equal(t, 5, fx.flights.available(10))
	assert.Equal(t, 5, fx.hotels.available(20))
	assert.Len(t, fx.events.cancelled, 1)
}

func TestConcurrentBookingsNoOversell(t *testing.T) {
	const attempts = 8

	fx := newBookingFixture(attempts, 1)

	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.CreateBooking(context.Background(), testBookingRequest())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, soldOut int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, errs.ErrSoldOut):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// The single hotel room admits exactly one booking.
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, soldOut)
	assert.Equal(t, 0, fx.hotels.available(20))

	// Every losing attempt returned its flight seat.
	assert.Equal(t, attempts-1, fx.flights.available(10))
	assert.Len(t, fx.store.bookings, 1)
}
