package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/richardmarsh-Qdex/football-ticket-booking/internal/errors"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
)

// MemoryStore is an in-process Store used by tests and local development.
// A single mutex held for the whole transaction stands in for row locks,
// which makes every transaction serializable; rollback is implemented by
// snapshotting the maps at transaction start.
type MemoryStore struct {
	mu sync.Mutex

	matches  map[int64]models.Match
	seats    map[int64]models.Seat
	bookings map[int64]models.Booking
	payments map[int64]models.Payment

	nextMatchID   int64
	nextSeatID    int64
	nextBookingID int64
	nextPaymentID int64

	// CommitErr, when set, fails the commit of every transaction so tests
	// can verify rollback behavior.
	CommitErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches:  make(map[int64]models.Match),
		seats:    make(map[int64]models.Seat),
		bookings: make(map[int64]models.Booking),
		payments: make(map[int64]models.Payment),
	}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	err := fn(ctx, &memoryTx{store: s})
	if err == nil && s.CommitErr != nil {
		err = fmt.Errorf("%w: commit: %v", apperrors.ErrStorage, s.CommitErr)
	}
	if err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	matches  map[int64]models.Match
	seats    map[int64]models.Seat
	bookings map[int64]models.Booking
	payments map[int64]models.Payment

	nextMatchID, nextSeatID, nextBookingID, nextPaymentID int64
}

func (s *MemoryStore) snapshot() memorySnapshot {
	snap := memorySnapshot{
		matches:       make(map[int64]models.Match, len(s.matches)),
		seats:         make(map[int64]models.Seat, len(s.seats)),
		bookings:      make(map[int64]models.Booking, len(s.bookings)),
		payments:      make(map[int64]models.Payment, len(s.payments)),
		nextMatchID:   s.nextMatchID,
		nextSeatID:    s.nextSeatID,
		nextBookingID: s.nextBookingID,
		nextPaymentID: s.nextPaymentID,
	}
	for id, m := range s.matches {
		snap.matches[id] = m
	}
	for id, seat := range s.seats {
		snap.seats[id] = seat
	}
	for id, b := range s.bookings {
		snap.bookings[id] = b
	}
	for id, p := range s.payments {
		snap.payments[id] = p
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.matches = snap.matches
	s.seats = snap.seats
	s.bookings = snap.bookings
	s.payments = snap.payments
	s.nextMatchID = snap.nextMatchID
	s.nextSeatID = snap.nextSeatID
	s.nextBookingID = snap.nextBookingID
	s.nextPaymentID = snap.nextPaymentID
}

func (s *MemoryStore) CreateMatch(ctx context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMatchID++
	m.ID = s.nextMatchID
	m.CreatedAt = time.Now()
	s.matches[m.ID] = *m
	return nil
}

func (s *MemoryStore) CreateSeat(ctx context.Context, seat *models.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeatID++
	seat.ID = s.nextSeatID
	seat.CreatedAt = time.Now()
	seat.UpdatedAt = seat.CreatedAt
	s.seats[seat.ID] = *seat
	return nil
}

func (s *MemoryStore) MatchByID(ctx context.Context, id int64) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MemoryStore) AvailableSeatNumbers(ctx context.Context, matchID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var numbers []string
	for _, seat := range s.seats {
		if seat.MatchID == matchID && seat.IsAvailable {
			numbers = append(numbers, seat.SeatNumber)
		}
	}
	sort.Strings(numbers)
	return numbers, nil
}

func (s *MemoryStore) BookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *MemoryStore) SeatsByBooking(ctx context.Context, bookingID int64) ([]models.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seatsByBookingLocked(bookingID), nil
}

func (s *MemoryStore) seatsByBookingLocked(bookingID int64) []models.Seat {
	var seats []models.Seat
	for _, seat := range s.seats {
		if seat.BookingID != nil && *seat.BookingID == bookingID {
			seats = append(seats, seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })
	return seats
}

func (s *MemoryStore) PaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) PaymentsByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payments []models.Payment
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID > payments[j].ID })
	return payments, nil
}

func (s *MemoryStore) ExpiredHolds(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bookings []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.BookingPending && b.PaymentState == models.PaymentUnpaid && b.CreatedAt.Before(cutoff) {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.Before(bookings[j].CreatedAt) })
	return bookings, nil
}

func (s *MemoryStore) UserBookingHistory(ctx context.Context, userID int64) ([]models.BookingHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bookings []models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.After(bookings[j].CreatedAt) })

	var items []models.BookingHistoryItem
	for _, b := range bookings {
		for _, seat := range s.seatsByBookingLocked(b.ID) {
			match := s.matches[seat.MatchID]
			items = append(items, models.BookingHistoryItem{
				BookingID:  b.ID,
				HomeTeam:   match.HomeTeam,
				AwayTeam:   match.AwayTeam,
				Section:    seat.Section,
				SeatNumber: seat.SeatNumber,
				Amount:     b.TotalAmount,
				Status:     b.Status,
				BookedAt:   b.CreatedAt,
			})
		}
	}
	return items, nil
}

func (s *MemoryStore) MatchSummaries(ctx context.Context) ([]models.MatchSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []models.Match
	for _, m := range s.matches {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].MatchDate.Before(matches[j].MatchDate) })

	var summaries []models.MatchSummary
	for _, m := range matches {
		sum := models.MatchSummary{
			MatchID:    m.ID,
			HomeTeam:   m.HomeTeam,
			AwayTeam:   m.AwayTeam,
			Venue:      m.Venue,
			TotalSeats: m.TotalSeats,
			Revenue:    decimal.Zero,
		}
		paidBookings := make(map[int64]bool)
		for _, seat := range s.seats {
			if seat.MatchID != m.ID {
				continue
			}
			if seat.IsAvailable {
				sum.AvailableSeats++
			} else {
				sum.BookedSeats++
				if seat.BookingID != nil {
					if b, ok := s.bookings[*seat.BookingID]; ok && b.PaymentState == models.PaymentPaid && !paidBookings[b.ID] {
						paidBookings[b.ID] = true
						sum.Revenue = sum.Revenue.Add(b.TotalAmount)
					}
				}
			}
		}
		if sum.TotalSeats > 0 {
			sum.AttendanceRate = float64(sum.BookedSeats) / float64(sum.TotalSeats) * 100
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// BackdateBooking rewrites a booking's creation time. Test hook for
// exercising hold expiry without sleeping.
func (s *MemoryStore) BackdateBooking(id int64, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bookings[id]; ok {
		b.CreatedAt = createdAt
		s.bookings[id] = b
	}
}

// BackdatePayment rewrites a payment's creation time. Test hook for
// exercising abandoned-attempt failover without sleeping.
func (s *MemoryStore) BackdatePayment(id int64, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.payments[id]; ok {
		p.CreatedAt = createdAt
		s.payments[id] = p
	}
}

// memoryTx operates on the store maps directly; WithTx holds the store
// mutex for the whole transaction and restores a snapshot on error.
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) SeatsForUpdate(ctx context.Context, seatIDs []int64) ([]models.Seat, error) {
	var seats []models.Seat
	for _, id := range seatIDs {
		if seat, ok := t.store.seats[id]; ok {
			seats = append(seats, seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })
	return seats, nil
}

func (t *memoryTx) ClaimSeat(ctx context.Context, seatID, bookingID int64) error {
	seat, ok := t.store.seats[seatID]
	if !ok {
		return fmt.Errorf("seat %d: %w", seatID, apperrors.ErrNotFound)
	}
	id := bookingID
	seat.IsAvailable = false
	seat.BookingID = &id
	seat.UpdatedAt = time.Now()
	t.store.seats[seatID] = seat
	return nil
}

func (t *memoryTx) ReleaseBookingSeats(ctx context.Context, bookingID int64) (int, error) {
	released := 0
	for id, seat := range t.store.seats {
		if seat.BookingID != nil && *seat.BookingID == bookingID {
			seat.IsAvailable = true
			seat.BookingID = nil
			seat.UpdatedAt = time.Now()
			t.store.seats[id] = seat
			released++
		}
	}
	return released, nil
}

func (t *memoryTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	t.store.nextBookingID++
	b.ID = t.store.nextBookingID
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	t.store.bookings[b.ID] = *b
	return nil
}

func (t *memoryTx) BookingForUpdate(ctx context.Context, id int64) (*models.Booking, error) {
	b, ok := t.store.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (t *memoryTx) SetBookingStatus(ctx context.Context, id int64, status models.BookingStatus, paymentState models.BookingPaymentState) error {
	b, ok := t.store.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d: %w", id, apperrors.ErrNotFound)
	}
	b.Status = status
	b.PaymentState = paymentState
	b.UpdatedAt = time.Now()
	t.store.bookings[id] = b
	return nil
}

func (t *memoryTx) SeatsByBooking(ctx context.Context, bookingID int64) ([]models.Seat, error) {
	return t.store.seatsByBookingLocked(bookingID), nil
}

func (t *memoryTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	t.store.nextPaymentID++
	p.ID = t.store.nextPaymentID
	p.CreatedAt = time.Now()
	t.store.payments[p.ID] = *p
	return nil
}

func (t *memoryTx) PaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	p, ok := t.store.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memoryTx) SetPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus, transactionID *string) error {
	p, ok := t.store.payments[id]
	if !ok {
		return fmt.Errorf("payment %d: %w", id, apperrors.ErrNotFound)
	}
	p.Status = status
	if transactionID != nil {
		p.TransactionID = transactionID
	}
	t.store.payments[id] = p
	return nil
}

func (t *memoryTx) PendingPayment(ctx context.Context, bookingID int64) (*models.Payment, error) {
	var newest *models.Payment
	for id := range t.store.payments {
		p := t.store.payments[id]
		if p.BookingID != bookingID || p.Status != models.PaymentStatusPending {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = &p
		}
	}
	return newest, nil
}

func (t *memoryTx) FailAbandonedPayments(ctx context.Context, bookingID int64, cutoff time.Time) (int, error) {
	failed := 0
	for id, p := range t.store.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			p.Status = models.PaymentStatusFailed
			t.store.payments[id] = p
			failed++
		}
	}
	return failed, nil
}
