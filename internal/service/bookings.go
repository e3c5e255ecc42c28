package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/cache"
	apperrors "github.com/richardmarsh-Qdex/football-ticket-booking/internal/errors"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/logger"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/metrics"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/repository"
)

// BookingService is the booking engine: it orchestrates seat reservation,
// price computation, payment settlement and refund/release, enforcing that
// no seat is ever held by two bookings at once.
type BookingService struct {
	store        repository.Store
	gateway      PaymentGateway
	events       EventPublisher
	availability *cache.AvailabilityCache
	pricing      Pricing

	holdDuration   time.Duration
	gatewayTimeout time.Duration
}

func NewBookingService(store repository.Store, gateway PaymentGateway, events EventPublisher, availability *cache.AvailabilityCache, cfg Config) *BookingService {
	holdDuration := cfg.HoldDuration
	if holdDuration == 0 {
		holdDuration = DefaultHoldDuration
	}
	gatewayTimeout := cfg.GatewayTimeout
	if gatewayTimeout == 0 {
		gatewayTimeout = DefaultGatewayTimeout
	}

	return &BookingService{
		store:          store,
		gateway:        gateway,
		events:         events,
		availability:   availability,
		pricing:        NewPricing(cfg.FeeRate, cfg.DiscountCodes),
		holdDuration:   holdDuration,
		gatewayTimeout: gatewayTimeout,
	}
}

// ReserveSeats claims the requested seats for a user inside one transaction.
// Seats are locked in ascending id order and re-checked for availability
// under the lock, so no two concurrent calls can both claim the same seat.
// Unavailable or unknown seats are reported per seat; a booking row is
// created only when at least one seat was claimed.
func (s *BookingService) ReserveSeats(ctx context.Context, req *models.ReserveSeatsRequest) (*models.ReserveSeatsResult, error) {
	seatIDs := dedupeSorted(req.SeatIDs)

	result := &models.ReserveSeatsResult{TotalAmount: decimal.Zero}
	if len(seatIDs) == 0 {
		return result, nil
	}

	var matchIDs []int64

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		seats, err := tx.SeatsForUpdate(ctx, seatIDs)
		if err != nil {
			return fmt.Errorf("lock seats: %w", err)
		}

		locked := make(map[int64]models.Seat, len(seats))
		for _, seat := range seats {
			locked[seat.ID] = seat
		}

		var claimable []models.Seat
		for _, id := range seatIDs {
			seat, ok := locked[id]
			switch {
			case !ok:
				result.Failed = append(result.Failed, models.SeatFailure{SeatID: id, Reason: models.SeatNotFound})
			case !seat.IsAvailable:
				result.Failed = append(result.Failed, models.SeatFailure{SeatID: id, Reason: models.SeatAlreadyTaken})
			default:
				claimable = append(claimable, seat)
			}
		}

		if len(claimable) == 0 {
			return nil
		}

		prices := make([]decimal.Decimal, len(claimable))
		for i, seat := range claimable {
			prices[i] = seat.Price
		}

		booking := &models.Booking{
			UserID:       req.UserID,
			Status:       models.BookingPending,
			PaymentState: models.PaymentUnpaid,
			TotalAmount:  s.pricing.Total(prices, req.DiscountCode),
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		seenMatch := make(map[int64]bool)
		for _, seat := range claimable {
			if err := tx.ClaimSeat(ctx, seat.ID, booking.ID); err != nil {
				return fmt.Errorf("claim seat %d: %w", seat.ID, err)
			}
			result.ClaimedIDs = append(result.ClaimedIDs, seat.ID)
			if !seenMatch[seat.MatchID] {
				seenMatch[seat.MatchID] = true
				matchIDs = append(matchIDs, seat.MatchID)
			}
		}

		result.BookingID = booking.ID
		result.TotalAmount = booking.TotalAmount
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, f := range result.Failed {
		switch f.Reason {
		case models.SeatNotFound:
			metrics.SeatReservation("not_found")
		case models.SeatAlreadyTaken:
			metrics.SeatReservation("already_taken")
		}
	}

	if result.BookingID != 0 {
		for range result.ClaimedIDs {
			metrics.SeatReservation("claimed")
		}
		metrics.BookingCreated()
		s.invalidateAvailability(ctx, matchIDs)

		s.publish(ctx, models.EventBookingCreated, models.BookingCreatedEvent{
			BookingID:   result.BookingID,
			UserID:      req.UserID,
			SeatIDs:     result.ClaimedIDs,
			TotalAmount: result.TotalAmount,
			Timestamp:   time.Now(),
		})
	}

	return result, nil
}

// SettlePayment charges the booking total through the external gateway. The
// pending payment row is committed before the gateway is invoked so a crash
// mid-call leaves an auditable record; the gateway call itself runs outside
// any transaction and never holds seat locks. A timed-out call is recorded
// as Failed, never left Pending.
func (s *BookingService) SettlePayment(ctx context.Context, req *models.SettlePaymentRequest) (*models.SettlePaymentResult, error) {
	payment := &models.Payment{
		BookingID: req.BookingID,
		Method:    "card",
		Status:    models.PaymentStatusPending,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		booking, err := tx.BookingForUpdate(ctx, req.BookingID)
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if booking == nil {
			return fmt.Errorf("booking %d: %w", req.BookingID, apperrors.ErrNotFound)
		}
		switch {
		case booking.PaymentState == models.PaymentPaid:
			return apperrors.ErrAlreadyPaid
		case booking.Status == models.BookingCancelled:
			return fmt.Errorf("%w: booking %d is cancelled", apperrors.ErrInvalidInput, booking.ID)
		}

		// A PENDING payment left behind by a crashed attempt is failed over
		// so the active-payment constraint admits a fresh row. Only attempts
		// older than the gateway timeout qualify: a younger one may still
		// have its charge in flight, and failing it over would let two
		// settlements charge the same booking twice.
		cutoff := time.Now().Add(-s.gatewayTimeout)
		if _, err := tx.FailAbandonedPayments(ctx, booking.ID, cutoff); err != nil {
			return fmt.Errorf("fail abandoned payments: %w", err)
		}
		if pending, err := tx.PendingPayment(ctx, booking.ID); err != nil {
			return fmt.Errorf("check pending payments: %w", err)
		} else if pending != nil {
			return fmt.Errorf("%w: booking %d", apperrors.ErrPaymentInFlight, booking.ID)
		}

		payment.Amount = booking.TotalAmount
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		return tx.SetBookingStatus(ctx, booking.ID, booking.Status, models.PaymentInFlight)
	})
	if err != nil {
		return nil, err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	start := time.Now()
	charge, chargeErr := s.gateway.Charge(chargeCtx, payment.Amount, req.PaymentToken, uuid.New().String())
	metrics.ObserveGateway("charge", time.Since(start))

	if chargeErr != nil || !charge.Success() {
		reason := "declined"
		if chargeErr != nil {
			reason = chargeErr.Error()
		}

		err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := tx.SetPaymentStatus(ctx, payment.ID, models.PaymentStatusFailed, nil); err != nil {
				return fmt.Errorf("record failed payment: %w", err)
			}
			// Seats stay claimed so the caller can retry without losing them
			// to another buyer; the hold sweeper bounds how long.
			return tx.SetBookingStatus(ctx, req.BookingID, models.BookingPending, models.PaymentUnpaid)
		})
		if err != nil {
			return nil, err
		}

		metrics.Payment("failed")
		s.publish(ctx, models.EventPaymentFailed, models.PaymentFailedEvent{
			BookingID: req.BookingID,
			PaymentID: payment.ID,
			Reason:    reason,
			Timestamp: time.Now(),
		})

		result := &models.SettlePaymentResult{PaymentID: payment.ID, Status: models.PaymentStatusFailed}
		return result, fmt.Errorf("%w: %s", apperrors.ErrGateway, reason)
	}

	transactionID := charge.TransactionID
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.SetPaymentStatus(ctx, payment.ID, models.PaymentStatusSuccess, &transactionID); err != nil {
			return fmt.Errorf("record successful payment: %w", err)
		}
		return tx.SetBookingStatus(ctx, req.BookingID, models.BookingConfirmed, models.PaymentPaid)
	})
	if err != nil {
		return nil, err
	}

	metrics.Payment("success")
	s.publish(ctx, models.EventBookingConfirmed, models.BookingConfirmedEvent{
		BookingID:     req.BookingID,
		PaymentID:     payment.ID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	})

	return &models.SettlePaymentResult{
		PaymentID:     payment.ID,
		Status:        models.PaymentStatusSuccess,
		TransactionID: &transactionID,
	}, nil
}

// RefundAndRelease refunds a successful payment through the gateway and, in
// one transaction, marks the payment refunded, cancels the booking and
// returns every one of its seats to inventory. The payment is flipped to
// refund-in-flight under lock before the gateway is invoked, so two
// concurrent refunds of one payment can never both reach the gateway.
func (s *BookingService) RefundAndRelease(ctx context.Context, req *models.RefundRequest) (*models.RefundResult, error) {
	var payment *models.Payment

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.PaymentForUpdate(ctx, req.PaymentID)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if locked == nil {
			return fmt.Errorf("payment %d: %w", req.PaymentID, apperrors.ErrNotFound)
		}
		switch {
		case locked.Status == models.PaymentStatusRefundPending:
			return fmt.Errorf("%w: payment %d", apperrors.ErrPaymentInFlight, locked.ID)
		case locked.Status != models.PaymentStatusSuccess || locked.TransactionID == nil:
			return fmt.Errorf("%w: payment %d is not refundable (status %s)",
				apperrors.ErrInvalidInput, locked.ID, locked.Status)
		}
		payment = locked
		return tx.SetPaymentStatus(ctx, locked.ID, models.PaymentStatusRefundPending, nil)
	})
	if err != nil {
		return nil, err
	}

	refundCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	start := time.Now()
	refundErr := s.gateway.Refund(refundCtx, *payment.TransactionID, payment.Amount)
	metrics.ObserveGateway("refund", time.Since(start))
	if refundErr != nil {
		metrics.Refund("failed")
		// Put the payment back to settled so the caller can retry.
		if err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.SetPaymentStatus(ctx, payment.ID, models.PaymentStatusSuccess, nil)
		}); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGateway, refundErr)
	}

	result := &models.RefundResult{PaymentID: payment.ID, BookingID: payment.BookingID}
	var matchIDs []int64

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		seats, err := tx.SeatsByBooking(ctx, payment.BookingID)
		if err != nil {
			return fmt.Errorf("load booking seats: %w", err)
		}
		seenMatch := make(map[int64]bool)
		for _, seat := range seats {
			result.ClaimedIDs = append(result.ClaimedIDs, seat.ID)
			if !seenMatch[seat.MatchID] {
				seenMatch[seat.MatchID] = true
				matchIDs = append(matchIDs, seat.MatchID)
			}
		}

		if err := tx.SetPaymentStatus(ctx, payment.ID, models.PaymentStatusRefunded, nil); err != nil {
			return fmt.Errorf("record refund: %w", err)
		}
		if err := tx.SetBookingStatus(ctx, payment.BookingID, models.BookingCancelled, models.PaymentRefunded); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}

		released, err := tx.ReleaseBookingSeats(ctx, payment.BookingID)
		if err != nil {
			return fmt.Errorf("release seats: %w", err)
		}
		result.SeatsReleased = released
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Refund("success")
	metrics.SeatsReleased("refund", result.SeatsReleased)
	s.invalidateAvailability(ctx, matchIDs)

	s.publish(ctx, models.EventBookingCancelled, models.BookingCancelledEvent{
		BookingID:     payment.BookingID,
		PaymentID:     payment.ID,
		SeatsReleased: result.SeatsReleased,
		Reason:        "refund",
		Timestamp:     time.Now(),
	})

	return result, nil
}

// CheckAvailability returns the subset of the requested seat numbers that
// are currently free for the match. Best-effort snapshot without locking;
// callers must still reserve and handle per-seat rejection.
func (s *BookingService) CheckAvailability(ctx context.Context, matchID int64, seatNumbers []string) (*models.CheckAvailabilityResult, error) {
	available, err := s.availableNumbers(ctx, matchID)
	if err != nil {
		return nil, err
	}

	free := make(map[string]bool, len(available))
	for _, n := range available {
		free[n] = true
	}

	result := &models.CheckAvailabilityResult{MatchID: matchID, Available: []string{}}
	for _, n := range seatNumbers {
		if free[n] {
			result.Available = append(result.Available, n)
		}
	}
	return result, nil
}

func (s *BookingService) availableNumbers(ctx context.Context, matchID int64) ([]string, error) {
	if s.availability != nil {
		numbers, hit, err := s.availability.AvailableNumbers(ctx, matchID)
		if err != nil {
			logger.WithContext(ctx).Warn("Availability cache lookup failed", "error", err, "match_id", matchID)
		} else if hit {
			return numbers, nil
		}
	}

	match, err := s.store.MatchByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}
	if match == nil {
		return nil, fmt.Errorf("match %d: %w", matchID, apperrors.ErrNotFound)
	}

	numbers, err := s.store.AvailableSeatNumbers(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load available seats: %w", err)
	}

	if s.availability != nil {
		if err := s.availability.StoreNumbers(ctx, matchID, numbers); err != nil {
			logger.WithContext(ctx).Warn("Availability cache store failed", "error", err, "match_id", matchID)
		}
	}
	return numbers, nil
}

// ReleaseExpiredHolds cancels bookings that sat Pending/Unpaid past the hold
// duration and returns their seats to inventory, one transaction per
// booking. Returns the ids of the bookings it released.
func (s *BookingService) ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]int64, error) {
	cutoff := now.Add(-s.holdDuration)

	expired, err := s.store.ExpiredHolds(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load expired holds: %w", err)
	}

	var released []int64
	for _, candidate := range expired {
		var matchIDs []int64
		seatsReleased := 0

		err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			booking, err := tx.BookingForUpdate(ctx, candidate.ID)
			if err != nil {
				return fmt.Errorf("lock booking: %w", err)
			}
			// Re-check under lock: a settlement may have raced in between
			// the unlocked scan and now.
			if booking == nil || booking.Status != models.BookingPending ||
				booking.PaymentState != models.PaymentUnpaid || !booking.CreatedAt.Before(cutoff) {
				return nil
			}

			seats, err := tx.SeatsByBooking(ctx, booking.ID)
			if err != nil {
				return fmt.Errorf("load booking seats: %w", err)
			}
			seenMatch := make(map[int64]bool)
			for _, seat := range seats {
				if !seenMatch[seat.MatchID] {
					seenMatch[seat.MatchID] = true
					matchIDs = append(matchIDs, seat.MatchID)
				}
			}

			if err := tx.SetBookingStatus(ctx, booking.ID, models.BookingCancelled, models.PaymentUnpaid); err != nil {
				return fmt.Errorf("cancel booking: %w", err)
			}
			seatsReleased, err = tx.ReleaseBookingSeats(ctx, booking.ID)
			return err
		})
		if err != nil {
			logger.WithContext(ctx).Error("Failed to release expired hold",
				"error", err, "booking_id", candidate.ID)
			continue
		}

		if seatsReleased == 0 && len(matchIDs) == 0 {
			continue // lost the race to a settlement
		}

		released = append(released, candidate.ID)
		metrics.SeatsReleased("hold_expired", seatsReleased)
		s.invalidateAvailability(ctx, matchIDs)

		s.publish(ctx, models.EventBookingExpired, models.BookingExpiredEvent{
			BookingID:     candidate.ID,
			SeatsReleased: seatsReleased,
			HeldFor:       now.Sub(candidate.CreatedAt).String(),
			Timestamp:     time.Now(),
		})
	}

	return released, nil
}

func (s *BookingService) invalidateAvailability(ctx context.Context, matchIDs []int64) {
	if s.availability == nil || len(matchIDs) == 0 {
		return
	}
	if err := s.availability.Invalidate(ctx, matchIDs...); err != nil {
		logger.WithContext(ctx).Warn("Availability cache invalidation failed",
			"error", err, "match_ids", matchIDs)
	}
}

func (s *BookingService) publish(ctx context.Context, subject string, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err, "event_type", subject)
	}
}

func dedupeSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
