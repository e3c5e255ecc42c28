package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeatFailReason explains why a requested seat could not be claimed.
type SeatFailReason string

const (
	SeatNotFound     SeatFailReason = "NOT_FOUND"
	SeatAlreadyTaken SeatFailReason = "ALREADY_TAKEN"
)

// SeatFailure is a per-seat rejection inside an otherwise successful
// reservation attempt.
type SeatFailure struct {
	SeatID int64          `json:"seat_id"`
	Reason SeatFailReason `json:"reason"`
}

// ReserveSeatsRequest - request to claim a set of seats for a user
type ReserveSeatsRequest struct {
	UserID       int64   `json:"user_id" binding:"required"`
	SeatIDs      []int64 `json:"seat_ids" binding:"required"`
	DiscountCode string  `json:"discount_code,omitempty"`
}

// ReserveSeatsResult reports which seats were claimed and which were not.
// BookingID is zero when nothing could be claimed; in that case no booking
// row exists.
type ReserveSeatsResult struct {
	BookingID   int64           `json:"booking_id,omitempty"`
	ClaimedIDs  []int64         `json:"claimed_seat_ids"`
	Failed      []SeatFailure   `json:"failed_seats,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SettlePaymentRequest - request to charge payment for a booking
type SettlePaymentRequest struct {
	BookingID    int64  `json:"booking_id" binding:"required"`
	PaymentToken string `json:"payment_token" binding:"required"`
}

// SettlePaymentResult reports the outcome of a settlement attempt.
type SettlePaymentResult struct {
	PaymentID     int64         `json:"payment_id"`
	Status        PaymentStatus `json:"status"`
	TransactionID *string       `json:"transaction_id,omitempty"`
}

// RefundRequest - request to refund a successful payment and release seats
type RefundRequest struct {
	PaymentID int64 `json:"payment_id" binding:"required"`
}

// RefundResult reports the outcome of a refund.
type RefundResult struct {
	PaymentID     int64   `json:"payment_id"`
	BookingID     int64   `json:"booking_id"`
	SeatsReleased int     `json:"seats_released"`
	ClaimedIDs    []int64 `json:"released_seat_ids,omitempty"`
}

// CheckAvailabilityResult - subset of requested seat numbers currently free
type CheckAvailabilityResult struct {
	MatchID   int64    `json:"match_id"`
	Available []string `json:"available"`
}

// BookingHistoryItem - one seat of one booking in a user's history
type BookingHistoryItem struct {
	BookingID  int64           `json:"booking_id"`
	HomeTeam   string          `json:"home_team"`
	AwayTeam   string          `json:"away_team"`
	Section    string          `json:"section"`
	SeatNumber string          `json:"seat_number"`
	Amount     decimal.Decimal `json:"amount"`
	Status     BookingStatus   `json:"status"`
	BookedAt   time.Time       `json:"booked_at"`
}

// MatchSummary - per-match inventory and revenue overview
type MatchSummary struct {
	MatchID        int64           `json:"match_id"`
	HomeTeam       string          `json:"home_team"`
	AwayTeam       string          `json:"away_team"`
	Venue          string          `json:"venue"`
	TotalSeats     int             `json:"total_seats"`
	BookedSeats    int             `json:"booked_seats"`
	AvailableSeats int             `json:"available_seats"`
	Revenue        decimal.Decimal `json:"revenue"`
	AttendanceRate float64         `json:"attendance_rate"`
}

// Invoice - billing view of a single booking
type Invoice struct {
	BookingID     int64           `json:"booking_id"`
	UserID        int64           `json:"user_id"`
	Status        BookingStatus   `json:"status"`
	PaymentState  BookingPaymentState `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Seats         []Seat          `json:"seats"`
	IssuedAt      time.Time       `json:"issued_at"`
}
