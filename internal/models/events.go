package models

import "time"

// Event types
const (
	EventTypeBookingCreated        = "BOOKING_CREATED"
	EventTypeBookingCancelled      = "BOOKING_CANCELLED"
	EventTypePaymentSucceeded      = "PAYMENT_SUCCEEDED"
	EventTypePaymentFailed         = "PAYMENT_FAILED"
	EventTypeNotificationRequested = "NOTIFICATION_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when the saga persists a PENDING booking
type BookingCreatedEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	UserID    int64  `json:"user_id"`
	FlightID  int64  `json:"flight_id"`
	HotelID   int64  `json:"hotel_id"`
	TotalCost int64  `json:"total_cost"`
	Status    string `json:"status"`
}

// BookingCancelledEvent published when a booking is cancelled
type BookingCancelledEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	Reason    string `json:"reason"`
}

// PaymentSucceededEvent published by the payment processor on a
// successful gateway outcome
type PaymentSucceededEvent struct {
	BaseEvent
	BookingID     int64  `json:"booking_id"`
	PaymentID     int64  `json:"payment_id"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

// PaymentFailedEvent published by the payment processor on a declined
// gateway outcome
type PaymentFailedEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	PaymentID int64  `json:"payment_id"`
	Reason    string `json:"reason"`
}

// NotificationRequestedEvent carries a best-effort notification to the
// dispatch worker
type NotificationRequestedEvent struct {
	BaseEvent
	Notification NotificationRequest `json:"notification"`
}
