package models

import (
	"fmt"
	"time"
)

// InventoryKind distinguishes the two structurally identical inventories.
type InventoryKind string

const (
	KindFlight InventoryKind = "flight"
	KindHotel  InventoryKind = "hotel"
)

// InventoryItem is the reservable view of a flight or hotel: a unit
// price, a countable number of seats or rooms, and the descriptive
// fields of the underlying row. Only the fields of the item's own kind
// are populated. Availability is derived from AvailableUnits and never
// stored independently.
type InventoryItem struct {
	ID             int64 `db:"id" json:"id"`
	Price          int64 `db:"price" json:"price"`
	AvailableUnits int   `db:"available_units" json:"available_units"`
	TotalUnits     int   `db:"total_units" json:"total_units"`

	// flight fields
	FlightNumber string `db:"flight_number" json:"flight_number,omitempty"`
	Airline      string `db:"airline" json:"airline,omitempty"`
	Origin       string `db:"origin" json:"origin,omitempty"`
	Destination  string `db:"destination" json:"destination,omitempty"`

	// hotel fields
	Name     string `db:"name" json:"name,omitempty"`
	Location string `db:"location" json:"location,omitempty"`
}

// Available reports whether at least one unit is left.
func (i *InventoryItem) Available() bool {
	return i.AvailableUnits > 0
}

// Describe renders the item for user-facing text such as notifications.
func (i *InventoryItem) Describe() string {
	if i.FlightNumber != "" {
		return fmt.Sprintf("flight %s (%s, %s to %s)", i.FlightNumber, i.Airline, i.Origin, i.Destination)
	}
	if i.Name != "" {
		return fmt.Sprintf("%s in %s", i.Name, i.Location)
	}
	return fmt.Sprintf("item %d", i.ID)
}

// Booking represents a combined flight+hotel trip booking. All monetary
// fields are in cents. The idempotency key dedupes retried create
// requests.
type Booking struct {
	ID             int64         `db:"id" json:"id"`
	UserID         int64         `db:"user_id" json:"user_id"`
	FlightID       int64         `db:"flight_id" json:"flight_id"`
	HotelID        int64         `db:"hotel_id" json:"hotel_id"`
	IdempotencyKey string        `db:"idempotency_key" json:"idempotency_key,omitempty"`
	TravelDate     time.Time     `db:"travel_date" json:"travel_date"`
	FlightPrice    int64         `db:"flight_price" json:"flight_price"`
	HotelPrice     int64         `db:"hotel_price" json:"hotel_price"`
	TotalCost      int64         `db:"total_cost" json:"total_cost"`
	Status         BookingStatus `db:"status" json:"status"`
	PaymentID      *int64        `db:"payment_id" json:"payment_id,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Payment represents one payment attempt against a booking. A record is
// created before the gateway is called, so failed attempts stay
// traceable. Amount is in cents.
type Payment struct {
	ID            int64         `db:"id" json:"id"`
	BookingID     int64         `db:"booking_id" json:"booking_id"`
	UserID        int64         `db:"user_id" json:"user_id"`
	Amount        int64         `db:"amount" json:"amount"`
	Method        string        `db:"method" json:"method"`
	Status        PaymentStatus `db:"status" json:"status"`
	TransactionID string        `db:"transaction_id" json:"transaction_id"`
	PaymentDate   *time.Time    `db:"payment_date" json:"payment_date,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Notification is the local log entry for a dispatched notification.
// Delivery itself is handled by the notification collaborator.
type Notification struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	BookingID int64      `db:"booking_id" json:"booking_id"`
	Recipient string     `db:"recipient" json:"recipient"`
	Subject   string     `db:"subject" json:"subject"`
	Message   string     `db:"message" json:"message"`
	Type      string     `db:"type" json:"type"`
	Status    string     `db:"status" json:"status"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// User is the traveler profile as served by the user collaborator.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// NotificationRequest is the payload sent to the notification
// collaborator.
type NotificationRequest struct {
	UserID    int64  `json:"user_id"`
	BookingID int64  `json:"booking_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}
