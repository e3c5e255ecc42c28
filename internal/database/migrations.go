package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	// Order matters: seats references bookings.
	migrations := []string{
		createMatchesTable,
		createBookingsTable,
		createSeatsTable,
		createPaymentsTable,
		createActivePaymentIndex,
		createUnpaidBookingsIndex,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createMatchesTable = `
CREATE TABLE IF NOT EXISTS matches (
    id SERIAL PRIMARY KEY,
    home_team VARCHAR(100) NOT NULL,
    away_team VARCHAR(100) NOT NULL,
    venue VARCHAR(200) NOT NULL,
    match_date TIMESTAMP NOT NULL,
    total_seats INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (total_seats >= 0)
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'UNPAID',
    total_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELLED')),
    CHECK (payment_status IN ('UNPAID', 'PAYMENT_PENDING', 'PAID', 'REFUNDED'))
);`

const createSeatsTable = `
CREATE TABLE IF NOT EXISTS seats (
    id SERIAL PRIMARY KEY,
    match_id INTEGER NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
    section VARCHAR(50) NOT NULL,
    seat_number VARCHAR(10) NOT NULL,
    price DECIMAL(10,2) NOT NULL,
    is_available BOOLEAN NOT NULL DEFAULT TRUE,
    booking_id INTEGER REFERENCES bookings(id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(match_id, section, seat_number),
    CHECK ((booking_id IS NULL) = is_available)
);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id SERIAL PRIMARY KEY,
    booking_id INTEGER NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
    amount DECIMAL(10,2) NOT NULL,
    method VARCHAR(50) NOT NULL,
    transaction_id VARCHAR(100),
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('PENDING', 'SUCCESS', 'FAILED', 'REFUND_PENDING', 'REFUNDED'))
);`

// One active (non-failed, non-refunded) settlement attempt per booking.
const createActivePaymentIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS payments_active_per_booking_idx
ON payments (booking_id)
WHERE status IN ('PENDING', 'SUCCESS', 'REFUND_PENDING');`

const createUnpaidBookingsIndex = `
CREATE INDEX IF NOT EXISTS bookings_unpaid_created_idx
ON bookings (created_at)
WHERE status = 'PENDING' AND payment_status = 'UNPAID';`
