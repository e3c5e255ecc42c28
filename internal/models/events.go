package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NATS Event Types
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
	EventPaymentFailed    = "payment.failed"
)

// BookingCreatedEvent represents a booking creation event
type BookingCreatedEvent struct {
	BookingID   int64           `json:"booking_id"`
	UserID      int64           `json:"user_id"`
	SeatIDs     []int64         `json:"seat_ids"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Timestamp   time.Time       `json:"timestamp"`
}

// BookingConfirmedEvent represents a successful settlement event
type BookingConfirmedEvent struct {
	BookingID     int64     `json:"booking_id"`
	PaymentID     int64     `json:"payment_id"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// BookingCancelledEvent represents a refund-driven cancellation event
type BookingCancelledEvent struct {
	BookingID     int64     `json:"booking_id"`
	PaymentID     int64     `json:"payment_id"`
	SeatsReleased int       `json:"seats_released"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// BookingExpiredEvent represents a hold-expiry release event
type BookingExpiredEvent struct {
	BookingID     int64     `json:"booking_id"`
	SeatsReleased int       `json:"seats_released"`
	HeldFor       string    `json:"held_for"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentFailedEvent represents a failed or timed-out gateway charge
type PaymentFailedEvent struct {
	BookingID int64     `json:"booking_id"`
	PaymentID int64     `json:"payment_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
