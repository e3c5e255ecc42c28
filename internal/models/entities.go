package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking. Status fields are
// closed types; free-form strings are never accepted from callers.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// BookingPaymentState tracks where a booking stands with respect to money.
type BookingPaymentState string

const (
	PaymentUnpaid   BookingPaymentState = "UNPAID"
	PaymentInFlight BookingPaymentState = "PAYMENT_PENDING"
	PaymentPaid     BookingPaymentState = "PAID"
	PaymentRefunded BookingPaymentState = "REFUNDED"
)

// PaymentStatus is the processing state of a single payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusSuccess       PaymentStatus = "SUCCESS"
	PaymentStatusFailed        PaymentStatus = "FAILED"
	PaymentStatusRefundPending PaymentStatus = "REFUND_PENDING"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
)

// Match represents a football match in the system
type Match struct {
	ID         int64     `json:"id" db:"id"`
	HomeTeam   string    `json:"home_team" db:"home_team"`
	AwayTeam   string    `json:"away_team" db:"away_team"`
	Venue      string    `json:"venue" db:"venue"`
	MatchDate  time.Time `json:"match_date" db:"match_date"`
	TotalSeats int       `json:"total_seats" db:"total_seats"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Seat represents a bookable seat for a match. BookingID is non-nil
// exactly when IsAvailable is false.
type Seat struct {
	ID          int64           `json:"id" db:"id"`
	MatchID     int64           `json:"match_id" db:"match_id"`
	Section     string          `json:"section" db:"section"`
	SeatNumber  string          `json:"seat_number" db:"seat_number"`
	Price       decimal.Decimal `json:"price" db:"price"`
	IsAvailable bool            `json:"is_available" db:"is_available"`
	BookingID   *int64          `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Booking represents a user's claim over one or more seats. TotalAmount is
// fixed at creation time from the seat prices read under lock and is never
// recomputed from live prices.
type Booking struct {
	ID           int64               `json:"id" db:"id"`
	UserID       int64               `json:"user_id" db:"user_id"`
	Status       BookingStatus       `json:"status" db:"status"`
	PaymentState BookingPaymentState `json:"payment_status" db:"payment_status"`
	TotalAmount  decimal.Decimal     `json:"total_amount" db:"total_amount"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" db:"updated_at"`
	Seats        []Seat              `json:"seats,omitempty"` // Not from DB, filled separately
}

// Payment represents a single settlement attempt for a booking. At most one
// non-failed payment exists per booking at a time.
type Payment struct {
	ID            int64           `json:"id" db:"id"`
	BookingID     int64           `json:"booking_id" db:"booking_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Method        string          `json:"method" db:"method"`
	TransactionID *string         `json:"transaction_id,omitempty" db:"transaction_id"`
	Status        PaymentStatus   `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
