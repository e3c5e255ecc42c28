package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/richardmarsh-Qdex/football-ticket-booking/internal/errors"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/external"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/repository"
)

// fakeGateway approves every charge unless told otherwise. The gate channels,
// when set, hold the call mid-flight until closed.
type fakeGateway struct {
	mu           sync.Mutex
	chargeStatus string
	chargeErr    error
	refundErr    error
	blockCharge  bool
	chargeGate   chan struct{}
	refundGate   chan struct{}
	charges      int
	refunds      int
}

func (g *fakeGateway) Charge(ctx context.Context, amount decimal.Decimal, token, orderID string) (*external.ChargeResult, error) {
	g.mu.Lock()
	g.charges++
	status := g.chargeStatus
	chargeErr := g.chargeErr
	block := g.blockCharge
	gate := g.chargeGate
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if gate != nil {
		<-gate
	}
	if chargeErr != nil {
		return nil, chargeErr
	}
	if status == "" {
		status = "success"
	}
	return &external.ChargeResult{Status: status, TransactionID: "txn-" + orderID}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error {
	g.mu.Lock()
	g.refunds++
	refundErr := g.refundErr
	gate := g.refundGate
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return refundErr
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges
}

func (g *fakeGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunds
}

// fakePublisher records published subjects.
type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) published(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

func newTestEngine(store repository.Store, gateway PaymentGateway, events EventPublisher) *BookingService {
	return NewBookingService(store, gateway, events, nil, Config{
		DiscountCodes:  map[string]int64{"SAVE10": 10, "SAVE20": 20, "VIP50": 50},
		GatewayTimeout: 200 * time.Millisecond,
	})
}

// seedMatch creates a match with four seats priced 100 each and returns the
// match id and the seat ids in creation order.
func seedMatch(t *testing.T, store *repository.MemoryStore) (int64, []int64) {
	t.Helper()
	ctx := context.Background()

	match := &models.Match{
		HomeTeam:   "Manchester United",
		AwayTeam:   "Liverpool",
		Venue:      "Old Trafford",
		MatchDate:  time.Now().AddDate(0, 0, 7),
		TotalSeats: 4,
	}
	require.NoError(t, store.CreateMatch(ctx, match))

	var seatIDs []int64
	for i := 1; i <= 4; i++ {
		seat := &models.Seat{
			MatchID:     match.ID,
			Section:     "Standard",
			SeatNumber:  fmt.Sprintf("S%03d", i),
			Price:       decimal.NewFromInt(100),
			IsAvailable: true,
		}
		require.NoError(t, store.CreateSeat(ctx, seat))
		seatIDs = append(seatIDs, seat.ID)
	}
	return match.ID, seatIDs
}

func reserve(t *testing.T, engine *BookingService, store *repository.MemoryStore, seatIDs []int64, code string) *models.ReserveSeatsResult {
	t.Helper()
	result, err := engine.ReserveSeats(context.Background(), &models.ReserveSeatsRequest{
		UserID:       1,
		SeatIDs:      seatIDs,
		DiscountCode: code,
	})
	require.NoError(t, err)
	return result
}

func TestReserveSeats(t *testing.T) {
	store := repository.NewMemoryStore()
	events := &fakePublisher{}
	engine := newTestEngine(store, &fakeGateway{}, events)
	_, seatIDs := seedMatch(t, store)

	result := reserve(t, engine, store, seatIDs[:2], "SAVE10")

	assert.NotZero(t, result.BookingID)
	assert.Equal(t, seatIDs[:2], result.ClaimedIDs)
	assert.Empty(t, result.Failed)
	assert.True(t, decimal.NewFromInt(207).Equal(result.TotalAmount), "got %s", result.TotalAmount)

	booking, err := store.BookingByID(context.Background(), result.BookingID)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, models.PaymentUnpaid, booking.PaymentState)

	seats, err := store.SeatsByBooking(context.Background(), result.BookingID)
	require.NoError(t, err)
	assert.Len(t, seats, 2)
	for _, seat := range seats {
		assert.False(t, seat.IsAvailable)
	}

	assert.Equal(t, 1, events.published(models.EventBookingCreated))
}

func TestReserveSeatsDeduplicatesIDs(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)
	_, seatIDs := seedMatch(t, store)

	result := reserve(t, engine, store, []int64{seatIDs[1], seatIDs[0], seatIDs[0], seatIDs[1]}, "")

	assert.Equal(t, []int64{seatIDs[0], seatIDs[1]}, result.ClaimedIDs)
	assert.True(t, decimal.NewFromInt(230).Equal(result.TotalAmount), "got %s", result.TotalAmount)
}

func TestReserveSeatsPartialFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)
	_, seatIDs := seedMatch(t, store)

	first := reserve(t, engine, store, seatIDs[:1], "")
	require.NotZero(t, first.BookingID)

	result := reserve(t, engine, store, []int64{seatIDs[0], seatIDs[1], 9999}, "")

	assert.NotZero(t, result.BookingID)
	assert.Equal(t, []int64{seatIDs[1]}, result.ClaimedIDs)
	assert.ElementsMatch(t, []models.SeatFailure{
		{SeatID: seatIDs[0], Reason: models.SeatAlreadyTaken},
		{SeatID: 9999, Reason: models.SeatNotFound},
	}, result.Failed)
}

func TestReserveSeatsNothingClaimable(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)
	_, seatIDs := seedMatch(t, store)

	first := reserve(t, engine, store, seatIDs[:1], "")
	require.NotZero(t, first.BookingID)

	result := reserve(t, engine, store, seatIDs[:1], "")

	assert.Zero(t, result.BookingID, "no booking row should exist when nothing was claimed")
	assert.Empty(t, result.ClaimedIDs)
	assert.Len(t, result.Failed, 1)

	_, err := store.BookingByID(context.Background(), first.BookingID+1)
	require.NoError(t, err)
}

func TestReserveSeatsEmptyRequest(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)
	seedMatch(t, store)

	result := reserve(t, engine, store, nil, "")

	assert.Zero(t, result.BookingID)
	assert.Empty(t, result.ClaimedIDs)
	assert.Empty(t, result.Failed)
	assert.True(t, decimal.Zero.Equal(result.TotalAmount))
}

func TestReserveSeatsConcurrentContention(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)
	_, seatIDs := seedMatch(t, store)

	const attempts = 16
	contested := seatIDs[0]

	var wg sync.WaitGroup
	results := make([]*models.ReserveSeatsResult, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.ReserveSeats(context.Background(), &models.ReserveSeatsRequest{
				UserID:  int64(i + 1),
				SeatIDs: []int64{contested},
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if results[i].BookingID != 0 {
			winners++
			assert.Equal(t, []int64{contested}, results[i].ClaimedIDs)
		} else {
			require.Len(t, results[i].Failed, 1)
			assert.Equal(t, models.SeatAlreadyTaken, results[i].Failed[0].Reason)
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller may claim a contested seat")
}

func TestSettlePayment(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{}
	events := &fakePublisher{}
	engine := newTestEngine(store, gateway, events)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:2], "SAVE10")

	result, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSuccess, result.Status)
	require.NotNil(t, result.TransactionID)

	payment, err := store.PaymentByID(context.Background(), result.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
	assert.True(t, booking.TotalAmount.Equal(payment.Amount))

	updated, err := store.BookingByID(context.Background(), booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, updated.Status)
	assert.Equal(t, models.PaymentPaid, updated.PaymentState)

	assert.Equal(t, 1, gateway.charges)
	assert.Equal(t, 1, events.published(models.EventBookingConfirmed))
}

func TestSettlePaymentAlreadyPaid(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{}
	engine := newTestEngine(store, gateway, nil)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:1], "")
	_, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	require.NoError(t, err)

	_, err = engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-2",
	})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
	assert.Equal(t, 1, gateway.charges, "a paid booking must never be charged again")
}

func TestSettlePaymentUnknownBooking(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)

	_, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    42,
		PaymentToken: "tok-1",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSettlePaymentDeclined(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{chargeStatus: "declined"}
	events := &fakePublisher{}
	engine := newTestEngine(store, gateway, events)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:2], "")

	result, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	assert.ErrorIs(t, err, apperrors.ErrGateway)
	require.NotNil(t, result)
	assert.Equal(t, models.PaymentStatusFailed, result.Status)

	payment, err := store.PaymentByID(context.Background(), result.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	// The booking returns to its pre-settlement state and keeps its seats.
	updated, err := store.BookingByID(context.Background(), booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, updated.Status)
	assert.Equal(t, models.PaymentUnpaid, updated.PaymentState)

	seats, err := store.SeatsByBooking(context.Background(), booking.BookingID)
	require.NoError(t, err)
	assert.Len(t, seats, 2)

	assert.Equal(t, 1, events.published(models.EventPaymentFailed))
}

func TestSettlePaymentGatewayTimeout(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{blockCharge: true}
	engine := newTestEngine(store, gateway, nil)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:1], "")

	result, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	assert.ErrorIs(t, err, apperrors.ErrGateway)
	require.NotNil(t, result)
	assert.Equal(t, models.PaymentStatusFailed, result.Status, "a timed out charge is recorded as failed, never left pending")

	payment, perr := store.PaymentByID(context.Background(), result.PaymentID)
	require.NoError(t, perr)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	_, err = engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	assert.ErrorIs(t, err, apperrors.ErrGateway, "retry goes back to the gateway, not short-circuited")
	assert.Equal(t, 2, gateway.charges)
}

func TestSettlePaymentStorageFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{}
	engine := newTestEngine(store, gateway, nil)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:1], "")

	store.CommitErr = errors.New("disk full")
	_, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	store.CommitErr = nil

	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Zero(t, gateway.charges, "gateway must not be invoked when the pending payment could not be committed")

	updated, berr := store.BookingByID(context.Background(), booking.BookingID)
	require.NoError(t, berr)
	assert.Equal(t, models.BookingPending, updated.Status)
	assert.Equal(t, models.PaymentUnpaid, updated.PaymentState)

	payments, perr := store.PaymentsByBooking(context.Background(), booking.BookingID)
	require.NoError(t, perr)
	assert.Empty(t, payments, "rolled back payment row must not survive")
}

func TestSettlePaymentConcurrentAttempts(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{chargeGate: make(chan struct{})}
	engine := NewBookingService(store, gateway, nil, nil, Config{
		GatewayTimeout: 5 * time.Second,
	})
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:1], "")
	settle := &models.SettlePaymentRequest{BookingID: booking.BookingID, PaymentToken: "tok-1"}

	var firstResult *models.SettlePaymentResult
	var firstErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		firstResult, firstErr = engine.SettlePayment(context.Background(), settle)
	}()

	// Wait until the first attempt has committed its pending payment and is
	// held at the gateway.
	require.Eventually(t, func() bool {
		payments, err := store.PaymentsByBooking(context.Background(), booking.BookingID)
		return err == nil && len(payments) == 1 && payments[0].Status == models.PaymentStatusPending
	}, 2*time.Second, time.Millisecond)

	_, err := engine.SettlePayment(context.Background(), settle)
	assert.ErrorIs(t, err, apperrors.ErrPaymentInFlight,
		"a second settlement must be rejected while a charge is in flight")
	assert.Equal(t, 1, gateway.chargeCount(), "the customer must be charged exactly once")

	close(gateway.chargeGate)
	<-done

	require.NoError(t, firstErr)
	assert.Equal(t, models.PaymentStatusSuccess, firstResult.Status)

	payments, err := store.PaymentsByBooking(context.Background(), booking.BookingID)
	require.NoError(t, err)
	require.Len(t, payments, 1, "at most one active payment per booking")
	assert.Equal(t, models.PaymentStatusSuccess, payments[0].Status)
}

func TestSettlePaymentFailsOverStaleAttempt(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{}
	engine := newTestEngine(store, gateway, nil)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:1], "")

	// A crashed attempt leaves a pending payment and an in-flight booking
	// behind. Once older than the gateway timeout it cannot still be live.
	stale := &models.Payment{
		BookingID: booking.BookingID,
		Method:    "card",
		Status:    models.PaymentStatusPending,
		Amount:    booking.TotalAmount,
	}
	require.NoError(t, store.WithTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreatePayment(ctx, stale); err != nil {
			return err
		}
		return tx.SetBookingStatus(ctx, booking.BookingID, models.BookingPending, models.PaymentInFlight)
	}))
	store.BackdatePayment(stale.ID, time.Now().Add(-time.Hour))

	result, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-2",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, result.Status)

	old, err := store.PaymentByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, old.Status, "the stale attempt is failed over")
}

func TestRefundAndRelease(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{}
	events := &fakePublisher{}
	engine := newTestEngine(store, gateway, events)
	matchID, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:2], "")
	settled, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	require.NoError(t, err)

	result, err := engine.RefundAndRelease(context.Background(), &models.RefundRequest{PaymentID: settled.PaymentID})
	require.NoError(t, err)

	assert.Equal(t, booking.BookingID, result.BookingID)
	assert.Equal(t, 2, result.SeatsReleased)
	assert.ElementsMatch(t, seatIDs[:2], result.ClaimedIDs)

	payment, err := store.PaymentByID(context.Background(), settled.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)

	updated, err := store.BookingByID(context.Background(), booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, updated.Status)
	assert.Equal(t, models.PaymentRefunded, updated.PaymentState)

	numbers, err := store.AvailableSeatNumbers(context.Background(), matchID)
	require.NoError(t, err)
	assert.Len(t, numbers, 4, "every seat returns to inventory after refund")

	assert.Equal(t, 1, gateway.refunds)
	assert.Equal(t, 1, events.published(models.EventBookingCancelled))
}

func TestRefundRequiresSuccessfulPayment(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{chargeStatus: "declined"}
	engine := newTestEngine(store, gateway, nil)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:1], "")
	failed, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	require.Error(t, err)

	_, err = engine.RefundAndRelease(context.Background(), &models.RefundRequest{PaymentID: failed.PaymentID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = engine.RefundAndRelease(context.Background(), &models.RefundRequest{PaymentID: 999})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Zero(t, gateway.refunds)
}

func TestRefundGatewayFailureKeepsState(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{}
	engine := newTestEngine(store, gateway, nil)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:1], "")
	settled, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	require.NoError(t, err)

	gateway.refundErr = errors.New("gateway unavailable")
	_, err = engine.RefundAndRelease(context.Background(), &models.RefundRequest{PaymentID: settled.PaymentID})
	assert.ErrorIs(t, err, apperrors.ErrGateway)

	payment, perr := store.PaymentByID(context.Background(), settled.PaymentID)
	require.NoError(t, perr)
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status, "failed refund must leave the payment settled")

	seats, serr := store.SeatsByBooking(context.Background(), booking.BookingID)
	require.NoError(t, serr)
	assert.Len(t, seats, 1, "failed refund must not release seats")
}

func TestRefundConcurrentAttempts(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &fakeGateway{refundGate: make(chan struct{})}
	engine := NewBookingService(store, gateway, nil, nil, Config{
		GatewayTimeout: 5 * time.Second,
	})
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:2], "")
	settled, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	require.NoError(t, err)

	refund := &models.RefundRequest{PaymentID: settled.PaymentID}

	var firstErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, firstErr = engine.RefundAndRelease(context.Background(), refund)
	}()

	// Wait until the first refund has marked the payment in flight and is
	// held at the gateway.
	require.Eventually(t, func() bool {
		p, err := store.PaymentByID(context.Background(), settled.PaymentID)
		return err == nil && p != nil && p.Status == models.PaymentStatusRefundPending
	}, 2*time.Second, time.Millisecond)

	_, err = engine.RefundAndRelease(context.Background(), refund)
	assert.ErrorIs(t, err, apperrors.ErrPaymentInFlight,
		"a second refund must be rejected while one is in flight")
	assert.Equal(t, 1, gateway.refundCount(), "the gateway must see exactly one refund")

	close(gateway.refundGate)
	<-done

	require.NoError(t, firstErr)

	payment, err := store.PaymentByID(context.Background(), settled.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
}

func TestReserveSeatsStorageFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)
	matchID, seatIDs := seedMatch(t, store)

	store.CommitErr = errors.New("disk full")
	result, err := engine.ReserveSeats(context.Background(), &models.ReserveSeatsRequest{
		UserID:  1,
		SeatIDs: seatIDs[:2],
	})
	store.CommitErr = nil

	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Nil(t, result)

	numbers, err := store.AvailableSeatNumbers(context.Background(), matchID)
	require.NoError(t, err)
	assert.Len(t, numbers, 4, "no partial seat claims survive a failed commit")

	booking, err := store.BookingByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, booking, "no booking row survives a failed commit")
}

func TestCheckAvailability(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)
	matchID, seatIDs := seedMatch(t, store)

	reserve(t, engine, store, seatIDs[:1], "")

	result, err := engine.CheckAvailability(context.Background(), matchID, []string{"S001", "S002", "Z999"})
	require.NoError(t, err)

	assert.Equal(t, []string{"S002"}, result.Available)
}

func TestCheckAvailabilityUnknownMatch(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)

	_, err := engine.CheckAvailability(context.Background(), 42, []string{"S001"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReleaseExpiredHolds(t *testing.T) {
	store := repository.NewMemoryStore()
	events := &fakePublisher{}
	engine := newTestEngine(store, &fakeGateway{}, events)
	matchID, seatIDs := seedMatch(t, store)

	stale := reserve(t, engine, store, seatIDs[:2], "")
	fresh := reserve(t, engine, store, seatIDs[2:3], "")

	store.BackdateBooking(stale.BookingID, time.Now().Add(-time.Hour))

	released, err := engine.ReleaseExpiredHolds(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []int64{stale.BookingID}, released)

	cancelled, err := store.BookingByID(context.Background(), stale.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)

	kept, err := store.BookingByID(context.Background(), fresh.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, kept.Status)

	numbers, err := store.AvailableSeatNumbers(context.Background(), matchID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S001", "S002", "S004"}, numbers)

	assert.Equal(t, 1, events.published(models.EventBookingExpired))
}

func TestReleaseExpiredHoldsSkipsSettled(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store, &fakeGateway{}, nil)
	_, seatIDs := seedMatch(t, store)

	booking := reserve(t, engine, store, seatIDs[:1], "")
	_, err := engine.SettlePayment(context.Background(), &models.SettlePaymentRequest{
		BookingID:    booking.BookingID,
		PaymentToken: "tok-1",
	})
	require.NoError(t, err)

	store.BackdateBooking(booking.BookingID, time.Now().Add(-time.Hour))

	released, err := engine.ReleaseExpiredHolds(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, released, "paid bookings are never expired")

	kept, err := store.BookingByID(context.Background(), booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, kept.Status)
	assert.Equal(t, models.PaymentPaid, kept.PaymentState)
}
