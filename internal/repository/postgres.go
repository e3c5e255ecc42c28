package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/database"
	apperrors "github.com/richardmarsh-Qdex/football-ticket-booking/internal/errors"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
)

// PostgresStore implements Store on top of lib/pq with SELECT ... FOR UPDATE
// row locking.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", apperrors.ErrStorage, err)
	}
	defer sqlTx.Rollback()

	if err := fn(ctx, &postgresTx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperrors.ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) CreateMatch(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (home_team, away_team, venue, match_date, total_seats)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return s.db.QueryRowContext(ctx, query,
		m.HomeTeam, m.AwayTeam, m.Venue, m.MatchDate, m.TotalSeats,
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *PostgresStore) CreateSeat(ctx context.Context, seat *models.Seat) error {
	query := `
		INSERT INTO seats (match_id, section, seat_number, price, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowContext(ctx, query,
		seat.MatchID, seat.Section, seat.SeatNumber, seat.Price, seat.IsAvailable,
	).Scan(&seat.ID, &seat.CreatedAt, &seat.UpdatedAt)
}

func (s *PostgresStore) MatchByID(ctx context.Context, id int64) (*models.Match, error) {
	m := &models.Match{}
	query := `
		SELECT id, home_team, away_team, venue, match_date, total_seats, created_at
		FROM matches
		WHERE id = $1`

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.HomeTeam, &m.AwayTeam, &m.Venue, &m.MatchDate, &m.TotalSeats, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *PostgresStore) AvailableSeatNumbers(ctx context.Context, matchID int64) ([]string, error) {
	query := `
		SELECT seat_number
		FROM seats
		WHERE match_id = $1 AND is_available = TRUE
		ORDER BY section, seat_number`

	rows, err := s.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (s *PostgresStore) BookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	return scanBooking(s.db.QueryRowContext(ctx, bookingSelect+` WHERE id = $1`, id))
}

func (s *PostgresStore) SeatsByBooking(ctx context.Context, bookingID int64) ([]models.Seat, error) {
	return querySeats(ctx, s.db.DB, seatSelect+` WHERE booking_id = $1 ORDER BY id`, bookingID)
}

func (s *PostgresStore) PaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	return scanPayment(s.db.QueryRowContext(ctx, paymentSelect+` WHERE id = $1`, id))
}

func (s *PostgresStore) PaymentsByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, paymentSelect+` WHERE booking_id = $1 ORDER BY created_at DESC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.TransactionID, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *PostgresStore) ExpiredHolds(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	query := bookingSelect + `
		WHERE status = 'PENDING' AND payment_status = 'UNPAID' AND created_at < $1
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.Status, &b.PaymentState, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (s *PostgresStore) UserBookingHistory(ctx context.Context, userID int64) ([]models.BookingHistoryItem, error) {
	query := `
		SELECT b.id, m.home_team, m.away_team, se.section, se.seat_number,
		       b.total_amount, b.status, b.created_at
		FROM bookings b
		JOIN seats se ON se.booking_id = b.id
		JOIN matches m ON m.id = se.match_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, se.id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.BookingHistoryItem
	for rows.Next() {
		var it models.BookingHistoryItem
		if err := rows.Scan(&it.BookingID, &it.HomeTeam, &it.AwayTeam, &it.Section,
			&it.SeatNumber, &it.Amount, &it.Status, &it.BookedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PostgresStore) MatchSummaries(ctx context.Context) ([]models.MatchSummary, error) {
	// Revenue is summed per distinct booking; joining through seats would
	// count a multi-seat booking's total once per seat.
	query := `
		SELECT m.id, m.home_team, m.away_team, m.venue, m.total_seats,
		       (SELECT COUNT(*) FROM seats s WHERE s.match_id = m.id AND NOT s.is_available) AS booked,
		       (SELECT COUNT(*) FROM seats s WHERE s.match_id = m.id AND s.is_available) AS available,
		       COALESCE((SELECT SUM(b.total_amount) FROM bookings b
		                 WHERE b.payment_status = 'PAID'
		                   AND b.id IN (SELECT s2.booking_id FROM seats s2
		                                WHERE s2.match_id = m.id AND s2.booking_id IS NOT NULL)), 0) AS revenue
		FROM matches m
		ORDER BY m.match_date`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.MatchSummary
	for rows.Next() {
		var sum models.MatchSummary
		if err := rows.Scan(&sum.MatchID, &sum.HomeTeam, &sum.AwayTeam, &sum.Venue,
			&sum.TotalSeats, &sum.BookedSeats, &sum.AvailableSeats, &sum.Revenue); err != nil {
			return nil, err
		}
		if sum.TotalSeats > 0 {
			sum.AttendanceRate = float64(sum.BookedSeats) / float64(sum.TotalSeats) * 100
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

const bookingSelect = `
	SELECT id, user_id, status, payment_status, total_amount, created_at, updated_at
	FROM bookings`

const seatSelect = `
	SELECT id, match_id, section, seat_number, price, is_available, booking_id, created_at, updated_at
	FROM seats`

const paymentSelect = `
	SELECT id, booking_id, amount, method, transaction_id, status, created_at
	FROM payments`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(&b.ID, &b.UserID, &b.Status, &b.PaymentState, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.TransactionID, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func querySeats(ctx context.Context, q queryer, query string, args ...interface{}) ([]models.Seat, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []models.Seat
	for rows.Next() {
		var seat models.Seat
		if err := rows.Scan(&seat.ID, &seat.MatchID, &seat.Section, &seat.SeatNumber,
			&seat.Price, &seat.IsAvailable, &seat.BookingID, &seat.CreatedAt, &seat.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// postgresTx implements Tx over a live *sql.Tx.
type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) SeatsForUpdate(ctx context.Context, seatIDs []int64) ([]models.Seat, error) {
	// ORDER BY id keeps the lock acquisition order stable across
	// overlapping transactions.
	query := seatSelect + ` WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	return querySeats(ctx, t.tx, query, pq.Array(seatIDs))
}

func (t *postgresTx) ClaimSeat(ctx context.Context, seatID, bookingID int64) error {
	query := `
		UPDATE seats
		SET is_available = FALSE, booking_id = $2, updated_at = NOW()
		WHERE id = $1`
	_, err := t.tx.ExecContext(ctx, query, seatID, bookingID)
	return err
}

func (t *postgresTx) ReleaseBookingSeats(ctx context.Context, bookingID int64) (int, error) {
	query := `
		UPDATE seats
		SET is_available = TRUE, booking_id = NULL, updated_at = NOW()
		WHERE booking_id = $1`
	res, err := t.tx.ExecContext(ctx, query, bookingID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t *postgresTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (user_id, status, payment_status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return t.tx.QueryRowContext(ctx, query,
		b.UserID, b.Status, b.PaymentState, b.TotalAmount,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (t *postgresTx) BookingForUpdate(ctx context.Context, id int64) (*models.Booking, error) {
	return scanBooking(t.tx.QueryRowContext(ctx, bookingSelect+` WHERE id = $1 FOR UPDATE`, id))
}

func (t *postgresTx) SetBookingStatus(ctx context.Context, id int64, status models.BookingStatus, paymentState models.BookingPaymentState) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3`
	_, err := t.tx.ExecContext(ctx, query, status, paymentState, id)
	return err
}

func (t *postgresTx) SeatsByBooking(ctx context.Context, bookingID int64) ([]models.Seat, error) {
	return querySeats(ctx, t.tx, seatSelect+` WHERE booking_id = $1 ORDER BY id`, bookingID)
}

func (t *postgresTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (booking_id, amount, method, transaction_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return t.tx.QueryRowContext(ctx, query,
		p.BookingID, p.Amount, p.Method, p.TransactionID, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
}

func (t *postgresTx) PaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	return scanPayment(t.tx.QueryRowContext(ctx, paymentSelect+` WHERE id = $1 FOR UPDATE`, id))
}

func (t *postgresTx) SetPaymentStatus(ctx context.Context, id int64, status models.PaymentStatus, transactionID *string) error {
	query := `
		UPDATE payments
		SET status = $1, transaction_id = COALESCE($2, transaction_id)
		WHERE id = $3`
	_, err := t.tx.ExecContext(ctx, query, status, transactionID, id)
	return err
}

func (t *postgresTx) PendingPayment(ctx context.Context, bookingID int64) (*models.Payment, error) {
	query := paymentSelect + `
		WHERE booking_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`
	return scanPayment(t.tx.QueryRowContext(ctx, query, bookingID))
}

func (t *postgresTx) FailAbandonedPayments(ctx context.Context, bookingID int64, cutoff time.Time) (int, error) {
	query := `
		UPDATE payments
		SET status = 'FAILED'
		WHERE booking_id = $1 AND status = 'PENDING' AND created_at < $2`
	res, err := t.tx.ExecContext(ctx, query, bookingID, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
