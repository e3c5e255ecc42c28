package repository

import (
	"context"
	"time"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
)

// Store is the durable record of matches, seats, bookings and payments.
// Every state-changing engine operation runs inside a single transaction
// obtained through WithTx; reads outside WithTx are unlocked snapshots and
// may be stale.
type Store interface {
	// WithTx runs fn inside one atomic transaction. A non-nil error from fn
	// or from commit rolls everything back; no partial state survives.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateMatch(ctx context.Context, m *models.Match) error
	CreateSeat(ctx context.Context, s *models.Seat) error
	MatchByID(ctx context.Context, id int64) (*models.Match, error)

	// AvailableSeatNumbers returns the seat identifiers currently flagged
	// available for a match, without locking.
	AvailableSeatNumbers(ctx context.Context, matchID int64) ([]string, error)

	BookingByID(ctx context.Context, id int64) (*models.Booking, error)
	SeatsByBooking(ctx context.Context, bookingID int64) ([]models.Seat, error)
	PaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	PaymentsByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error)

	// ExpiredHolds returns bookings still Pending/Unpaid that were created
	// before the cutoff, oldest first.
	ExpiredHolds(ctx context.Context, cutoff time.Time) ([]models.Booking, error)

	UserBookingHistory(ctx context.Context, userID int64) ([]models.BookingHistoryItem, error)
	MatchSummaries(ctx context.Context) ([]models.MatchSummary, error)
}

// Tx exposes the row-locked operations available inside a transaction.
type Tx interface {
	// SeatsForUpdate locks the given seat rows and returns them in ascending
	// id order. Ids that do not exist are simply absent from the result.
	// Callers must pass ids already sorted ascending so that overlapping
	// transactions acquire locks in the same order.
	SeatsForUpdate(ctx context.Context, seatIDs []int64) ([]models.Seat, error)

	// ClaimSeat flips a seat to unavailable and attaches it to a booking.
	ClaimSeat(ctx context.Context, seatID, bookingID int64) error

	// ReleaseBookingSeats makes every seat of a booking available again and
	// detaches it. Returns the number of seats released.
	ReleaseBookingSeats(ctx context.Context, bookingID int64) (int, error)

	CreateBooking(ctx context.Context, b *models.Booking) error
	BookingForUpdate(ctx context.Context, id int64) (*models.Booking, error)
	SetBookingStatus(ctx context.Context, id int64, status models.BookingStatus, paymentState models.BookingPaymentState) error
	SeatsByBooking(ctx context.Context, bookingID int64) ([]models.Seat, error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	PaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error)
	SetPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus, transactionID *string) error

	// PendingPayment locks and returns the newest still-pending payment of a
	// booking, or nil when none exists.
	PendingPayment(ctx context.Context, bookingID int64) (*models.Payment, error)

	// FailAbandonedPayments marks the booking's pending payments created
	// before the cutoff as failed, clearing the way for a fresh settlement
	// attempt. A pending payment younger than the cutoff may still have a
	// gateway charge in flight and must not be touched. Returns the number of
	// payments failed over.
	FailAbandonedPayments(ctx context.Context, bookingID int64, cutoff time.Time) (int, error)
}
