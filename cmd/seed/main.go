package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/config"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/database"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/models"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/repository"
)

var (
	seatsPerSection = flag.Int("seats", 100, "Number of seats to create per section")
	dryRun          = flag.Bool("dry-run", false, "Show what would be seeded without making changes")
)

type sectionPlan struct {
	name  string
	price decimal.Decimal
}

var sections = []sectionPlan{
	{name: "VIP", price: decimal.RequireFromString("199.99")},
	{name: "Premium", price: decimal.RequireFromString("149.99")},
	{name: "Standard", price: decimal.RequireFromString("89.99")},
	{name: "Economy", price: decimal.RequireFromString("49.99")},
}

func seedMatches(now time.Time) []models.Match {
	return []models.Match{
		{HomeTeam: "Manchester United", AwayTeam: "Liverpool", Venue: "Old Trafford", MatchDate: now.AddDate(0, 0, 7)},
		{HomeTeam: "Chelsea", AwayTeam: "Arsenal", Venue: "Stamford Bridge", MatchDate: now.AddDate(0, 0, 14)},
		{HomeTeam: "Manchester City", AwayTeam: "Tottenham", Venue: "Etihad Stadium", MatchDate: now.AddDate(0, 0, 21)},
	}
}

func main() {
	flag.Parse()

	slog.Info("Starting seeder...")

	cfg := config.Load()
	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := repository.NewPostgresStore(db)

	if err := seed(context.Background(), store); err != nil {
		slog.Error("Seeding failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Seeding completed successfully!")
}

func seed(ctx context.Context, store repository.Store) error {
	matches := seedMatches(time.Now())
	totalSeats := len(sections) * *seatsPerSection

	if *dryRun {
		for _, m := range matches {
			slog.Info("[DRY RUN] Would seed match", "home_team", m.HomeTeam, "away_team", m.AwayTeam, "venue", m.Venue, "seats", totalSeats)
		}
		return nil
	}

	for i := range matches {
		m := &matches[i]
		m.TotalSeats = totalSeats

		if err := store.CreateMatch(ctx, m); err != nil {
			return fmt.Errorf("failed to create match %s vs %s: %w", m.HomeTeam, m.AwayTeam, err)
		}

		for _, sec := range sections {
			for n := 1; n <= *seatsPerSection; n++ {
				seat := &models.Seat{
					MatchID:     m.ID,
					Section:     sec.name,
					SeatNumber:  fmt.Sprintf("%c%03d", sec.name[0], n),
					Price:       sec.price,
					IsAvailable: true,
				}
				if err := store.CreateSeat(ctx, seat); err != nil {
					return fmt.Errorf("failed to create seat %s for match %d: %w", seat.SeatNumber, m.ID, err)
				}
			}
		}

		slog.Info("Seeded match", "match_id", m.ID, "home_team", m.HomeTeam, "away_team", m.AwayTeam, "seats", totalSeats)
	}

	return nil
}
