package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/service"
)

// HoldSweeper periodically releases seats whose booking sat Pending/Unpaid
// past the configured hold duration. Without it, a failed or abandoned
// payment attempt would keep seats locked forever.
type HoldSweeper struct {
	bookings *service.BookingService
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

func NewHoldSweeper(bookings *service.BookingService, interval time.Duration) *HoldSweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HoldSweeper{
		bookings: bookings,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop. The first sweep runs immediately.
func (s *HoldSweeper) Start(ctx context.Context) {
	slog.Info("Starting hold sweeper", "interval", s.interval.String())

	s.ticker = time.NewTicker(s.interval)

	go s.sweep(ctx)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.sweep(ctx)
			case <-s.done:
				slog.Info("Hold sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background loop.
func (s *HoldSweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
}

func (s *HoldSweeper) sweep(ctx context.Context) {
	released, err := s.bookings.ReleaseExpiredHolds(ctx, time.Now())
	if err != nil {
		slog.Error("Hold sweep failed", "error", err)
		return
	}

	if len(released) > 0 {
		slog.Info("Released expired holds", "count", len(released), "booking_ids", released)
	} else {
		slog.Debug("No expired holds found")
	}
}
