package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/richardmarsh-Qdex/football-ticket-booking/internal/errors"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
)

// Read-only views over the ledger. Unlocked snapshots; totals come from the
// booking rows, never recomputed from live seat prices.

// UserBookingHistory returns one row per seat of every booking the user has
// made, newest booking first.
func (s *BookingService) UserBookingHistory(ctx context.Context, userID int64) ([]models.BookingHistoryItem, error) {
	items, err := s.store.UserBookingHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load booking history: %w", err)
	}
	return items, nil
}

// MatchSummaries returns inventory and revenue figures for every match.
func (s *BookingService) MatchSummaries(ctx context.Context) ([]models.MatchSummary, error) {
	summaries, err := s.store.MatchSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load match summaries: %w", err)
	}
	return summaries, nil
}

// Invoice assembles the billing view of one booking: status, fixed total,
// constituent seats and the latest settled transaction id if any.
func (s *BookingService) Invoice(ctx context.Context, bookingID int64) (*models.Invoice, error) {
	booking, err := s.store.BookingByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %d: %w", bookingID, apperrors.ErrNotFound)
	}

	seats, err := s.store.SeatsByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking seats: %w", err)
	}

	invoice := &models.Invoice{
		BookingID:    booking.ID,
		UserID:       booking.UserID,
		Status:       booking.Status,
		PaymentState: booking.PaymentState,
		TotalAmount:  booking.TotalAmount,
		Seats:        seats,
		IssuedAt:     time.Now(),
	}

	payments, err := s.store.PaymentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	for _, p := range payments {
		if p.TransactionID != nil && (p.Status == models.PaymentStatusSuccess || p.Status == models.PaymentStatusRefunded) {
			invoice.TransactionID = p.TransactionID
			break
		}
	}

	return invoice, nil
}
